package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTrackerFinishMessages(t *testing.T) {
	var buf bytes.Buffer
	tr := newTracker(&buf, "decoding", 3)
	tr.Tick()
	tr.FinishSkipped("cache hit")
	if !strings.Contains(buf.String(), "decoding skipped (cache hit)") {
		t.Errorf("missing skip message in %q", buf.String())
	}

	buf.Reset()
	tr = newTracker(&buf, "analysis", 7)
	tr.Phase(2, 7, "entrypoints")
	tr.FinishError(errors.New("boom"))
	if !strings.Contains(buf.String(), "analysis error: boom") {
		t.Errorf("missing error message in %q", buf.String())
	}
}

func TestTrackerPhaseRaisesMax(t *testing.T) {
	var buf bytes.Buffer
	tr := newTracker(&buf, "analysis", 1)
	tr.Phase(3, 7, "reachability")
	if got := tr.bar.GetMax(); got != 7 {
		t.Errorf("max = %d, want 7", got)
	}
	if got := tr.bar.State().CurrentNum; got != 3 {
		t.Errorf("current = %d, want 3", got)
	}
	tr.FinishSuccess()
}
