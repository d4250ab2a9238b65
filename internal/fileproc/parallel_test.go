package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestMapIndexed(t *testing.T) {
	items := make([]string, 100)
	for i := range items {
		items[i] = fmt.Sprintf("unit%d.json", i)
	}

	outcomes := MapIndexed(context.Background(), items, 4, func(_ context.Context, s string) (string, error) {
		return "decoded:" + s, nil
	}, nil)

	if len(outcomes) != len(items) {
		t.Fatalf("Expected %d outcomes, got %d", len(items), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Err != nil {
			t.Errorf("Outcome[%d] unexpected error: %v", i, o.Err)
		}
		if want := "decoded:" + items[i]; o.Value != want {
			t.Errorf("Outcome[%d] = %q, want %q", i, o.Value, want)
		}
	}
}

func TestMapIndexed_Empty(t *testing.T) {
	outcomes := MapIndexed(context.Background(), []string{}, 0, func(_ context.Context, s string) (int, error) {
		return len(s), nil
	}, nil)
	if outcomes != nil {
		t.Errorf("Expected nil outcomes for empty input, got %v", outcomes)
	}
}

func TestMapIndexed_WithErrors(t *testing.T) {
	items := []string{"a.json", "b.json", "c.json"}
	boom := errors.New("boom")

	outcomes := MapIndexed(context.Background(), items, 0, func(_ context.Context, s string) (string, error) {
		if s == "b.json" {
			return "", boom
		}
		return s, nil
	}, nil)

	if outcomes[0].Value != "a.json" || outcomes[2].Value != "c.json" {
		t.Errorf("Valid outcomes should be preserved, got %+v", outcomes)
	}
	if !errors.Is(outcomes[1].Err, boom) {
		t.Errorf("Outcome[1].Err = %v, want boom", outcomes[1].Err)
	}

	errs := CollectErrors(items, outcomes, func(s string) string { return s })
	if !errs.HasErrors() || len(errs.Errors) != 1 {
		t.Fatalf("Expected one collected error, got %v", errs)
	}
	if errs.Errors[0].Path != "b.json" {
		t.Errorf("Error path = %q, want b.json", errs.Errors[0].Path)
	}
	if !errors.Is(errs.Errors[0], boom) {
		t.Error("ProcessingError should unwrap to the item error")
	}
}

func TestMapIndexed_Progress(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var calls atomic.Int32

	MapIndexed(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("odd one out")
		}
		return n * n, nil
	}, func() { calls.Add(1) })

	if got := calls.Load(); got != int32(len(items)) {
		t.Errorf("Progress called %d times, want %d", got, len(items))
	}
}

func TestMapIndexed_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	outcomes := MapIndexed(ctx, []int{1, 2, 3}, 1, func(_ context.Context, n int) (int, error) {
		ran.Add(1)
		return n, nil
	}, nil)

	if ran.Load() != 0 {
		t.Errorf("No item should run after cancellation, ran %d", ran.Load())
	}
	for i, o := range outcomes {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("Outcome[%d].Err = %v, want context.Canceled", i, o.Err)
		}
	}
}

func TestCollectErrors_None(t *testing.T) {
	items := []string{"a"}
	outcomes := []Outcome[int]{{Value: 1}}
	if errs := CollectErrors(items, outcomes, func(s string) string { return s }); errs != nil {
		t.Errorf("Expected nil, got %v", errs)
	}
}

func TestProcessingErrors(t *testing.T) {
	var nilErrs *ProcessingErrors
	if nilErrs.HasErrors() {
		t.Error("nil ProcessingErrors should have no errors")
	}

	errs := &ProcessingErrors{}
	if errs.Error() != "no errors" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("a.json", errors.New("bad"))
	if errs.Error() != "a.json: bad" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("b.json", errors.New("worse"))
	if errs.Error() != "2 units failed to process (first: a.json: bad)" {
		t.Errorf("Error() = %q", errs.Error())
	}
}

func TestWorkers(t *testing.T) {
	if Workers(3) != 3 {
		t.Errorf("Workers(3) = %d", Workers(3))
	}
	if want := runtime.NumCPU() * DefaultWorkerMultiplier; Workers(0) != want {
		t.Errorf("Workers(0) = %d, want %d", Workers(0), want)
	}
}
