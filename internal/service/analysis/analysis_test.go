package analysis

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/deadwood/internal/cache"
	"github.com/panbanda/deadwood/internal/locator"
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/panbanda/deadwood/pkg/decoder/mocks"
	"github.com/panbanda/deadwood/pkg/models"
	"github.com/panbanda/deadwood/pkg/program"
)

const mainUnit = `{
  "name": "app/Main",
  "methods": [
    {
      "name": "main",
      "descriptor": "([Ljava/lang/String;)V",
      "modifiers": ["public", "static"],
      "instructions": [
        {"opcode": 184, "call": {"owner": "app/Main", "name": "helper", "descriptor": "()V"}},
        {"opcode": 177}
      ]
    },
    {"name": "helper", "descriptor": "()V", "modifiers": ["private", "static"], "instructions": [{"opcode": 177}]},
    {"name": "unused", "descriptor": "()V", "modifiers": ["private"], "instructions": [{"opcode": 177}]}
  ]
}`

const utilUnit = `
name: app/Util
fields:
  - {name: cache, descriptor: Ljava/util/Map;, modifiers: [private]}
methods:
  - name: orphan
    descriptor: ()V
    modifiers: [private]
    instructions:
      - {opcode: 177}
`

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Exclude.Gitignore = false
	return cfg
}

func writeUnits(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func deadKeys(r *models.Report) []string {
	var keys []string
	for _, m := range r.DeadMethods {
		keys = append(keys, m.Key)
	}
	return keys
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	svc, err := New(WithConfig(cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, svc.Config())
	assert.NotNil(t, svc.decoder, "record decoder is the default")
}

func TestAnalyzePathDirectory(t *testing.T) {
	dir := writeUnits(t, map[string]string{
		"app/Main.json": mainUnit,
		"app/Util.yaml": utilUnit,
	})

	svc, err := New(WithConfig(testConfig()))
	require.NoError(t, err)

	res, err := svc.AnalyzePath(context.Background(), dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, locator.TargetDirectory, res.Target)
	assert.Equal(t, 2, res.Units)
	rep := res.Report
	assert.Equal(t, []string{"app.Main.unused()V", "app.Util.orphan()V"}, deadKeys(rep))
	assert.Equal(t, 2, rep.Summary.TotalClasses)
	require.Len(t, rep.DeadFields, 1)
	assert.Equal(t, "app.Util.cache:Ljava/util/Map;", rep.DeadFields[0].Key)
	assert.Empty(t, rep.DecodeFailures)
}

func TestAnalyzePathArchive(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "app.jar")
	f, err := os.Create(jar)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("app/Main.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(mainUnit))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	svc, err := New(WithConfig(testConfig()))
	require.NoError(t, err)

	res, err := svc.AnalyzePath(context.Background(), jar, Options{})
	require.NoError(t, err)
	assert.Equal(t, locator.TargetArchive, res.Target)
	assert.Equal(t, []string{"app.Main.unused()V"}, deadKeys(res.Report))
}

func TestAnalyzePathNotFound(t *testing.T) {
	svc, err := New(WithConfig(testConfig()))
	require.NoError(t, err)

	_, err = svc.AnalyzePath(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, locator.ErrNotFound)

	var nf *locator.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestAnalyzeDecodeFailuresAreSkipped(t *testing.T) {
	dir := writeUnits(t, map[string]string{
		"Good.json": mainUnit,
		"Bad.json":  `{"methods": "nope"}`,
	})

	dec := mocks.NewMockDecoder(t)
	dec.EXPECT().Decode(mock.Anything).RunAndReturn(func(data []byte) (*models.Class, error) {
		if strings.Contains(string(data), "nope") {
			return nil, errors.New("bad unit")
		}
		return &models.Class{Name: "app.Main", Methods: []*models.Method{{
			Name:       "main",
			Descriptor: "([Ljava/lang/String;)V",
			Access:     models.AccPublic | models.AccStatic,
		}}}, nil
	})

	svc, err := New(WithConfig(testConfig()), WithDecoder(dec))
	require.NoError(t, err)

	res, err := svc.AnalyzePath(context.Background(), dir, Options{})
	require.NoError(t, err)

	rep := res.Report
	require.Len(t, rep.DecodeFailures, 1)
	assert.Equal(t, filepath.Join(dir, "Bad.json"), rep.DecodeFailures[0].Unit)
	assert.Contains(t, rep.DecodeFailures[0].Message, "bad unit")
	assert.True(t, rep.HasWarning(models.WarningDecodeFailures))
	assert.Equal(t, 1, rep.Summary.TotalClasses)

	require.True(t, res.Failed.HasErrors())
	require.Len(t, res.Failed.Errors, 1)
	assert.Equal(t, filepath.Join(dir, "Bad.json"), res.Failed.Errors[0].Path)
	var de *program.DecodeError
	assert.ErrorAs(t, res.Failed.Errors[0], &de)
}

func TestAnalyzeWithoutFailures(t *testing.T) {
	dir := writeUnits(t, map[string]string{"Main.json": mainUnit})
	svc, err := New(WithConfig(testConfig()))
	require.NoError(t, err)

	res, err := svc.AnalyzePath(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Failed)
}

func TestAnalyzeLocatorFailuresReachReport(t *testing.T) {
	dec := mocks.NewMockDecoder(t)
	svc, err := New(WithConfig(testConfig()), WithDecoder(dec))
	require.NoError(t, err)

	loc := &locator.Result{
		Type:     locator.TargetArchive,
		Path:     "broken.jar",
		Failures: []locator.Failure{{Unit: "broken.jar", Err: errors.New("zip: not a valid zip file")}},
	}
	res, err := svc.Analyze(context.Background(), loc, Options{})
	require.NoError(t, err)
	require.Len(t, res.Report.DecodeFailures, 1)
	assert.Equal(t, "broken.jar", res.Report.DecodeFailures[0].Unit)
	assert.True(t, res.Report.HasWarning(models.WarningNoEntryPoints))
}

func TestAnalyzeConflictingDefinitionIsFatal(t *testing.T) {
	dec := mocks.NewMockDecoder(t)
	dec.EXPECT().Decode(mock.Anything).RunAndReturn(func(data []byte) (*models.Class, error) {
		return &models.Class{Name: "A", Methods: []*models.Method{{Name: "f", Descriptor: "()V", Access: models.AccessFlags(len(data))}}}, nil
	})

	svc, err := New(WithConfig(testConfig()), WithDecoder(dec))
	require.NoError(t, err)

	loc := &locator.Result{Units: []locator.Unit{
		{Name: "A.json", Data: []byte("a")},
		{Name: "copy/A.json", Data: []byte("abc")},
	}}
	_, err = svc.Analyze(context.Background(), loc, Options{})
	assert.ErrorIs(t, err, program.ErrConflictingDefinition)
}

func TestAnalyzeProgressCallbacks(t *testing.T) {
	dir := writeUnits(t, map[string]string{
		"Main.json": mainUnit,
		"Util.yml":  utilUnit,
	})

	svc, err := New(WithConfig(testConfig()))
	require.NoError(t, err)

	var units atomic.Int32
	var phases []string
	_, err = svc.AnalyzePath(context.Background(), dir, Options{
		OnUnit: func() { units.Add(1) },
		OnPhase: func(done, total int, step string) {
			assert.Equal(t, len(deadcode.Phases), total)
			phases = append(phases, step)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), units.Load())
	assert.Equal(t, deadcode.Phases, phases)
}

func TestAnalyzeUsesCache(t *testing.T) {
	dir := writeUnits(t, map[string]string{"Main.json": mainUnit})

	c, err := cache.New(t.TempDir(), 1, true)
	require.NoError(t, err)

	svc, err := New(WithConfig(testConfig()), WithCache(c))
	require.NoError(t, err)

	first, err := svc.AnalyzePath(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits)

	// The second run must not reach the decoder.
	dec := mocks.NewMockDecoder(t)
	cached, err := New(WithConfig(testConfig()), WithCache(c), WithDecoder(dec))
	require.NoError(t, err)

	second, err := cached.AnalyzePath(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.CacheHits)
	assert.Equal(t, first.Report.Fingerprint(), second.Report.Fingerprint())
}

func TestForgetDropsCachedUnits(t *testing.T) {
	dir := writeUnits(t, map[string]string{"Main.json": mainUnit})
	c, err := cache.New(t.TempDir(), 1, true)
	require.NoError(t, err)

	svc, err := New(WithConfig(testConfig()), WithCache(c))
	require.NoError(t, err)
	_, err = svc.AnalyzePath(context.Background(), dir, Options{})
	require.NoError(t, err)

	stats, err := c.GetStats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Entries)

	unit := filepath.Join(dir, "Main.json")
	require.NoError(t, svc.Forget([]string{unit, filepath.Join(dir, "app.jar"), filepath.Join(dir, "Gone.json")}))

	stats, err = c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)

	res, err := svc.AnalyzePath(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.CacheHits)
}

func TestAnalyzeConfigOptions(t *testing.T) {
	dir := writeUnits(t, map[string]string{"Main.json": mainUnit})

	cfg := testConfig()
	cfg.Analysis.EntryPoints = nil
	svc, err := New(WithConfig(cfg))
	require.NoError(t, err)

	res, err := svc.AnalyzePath(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Report.DeadMethods, 3, "no policies means no entry points")
	assert.True(t, res.Report.HasWarning(models.WarningNoEntryPoints))
}

func TestAnalyzeInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Mode = "everything"
	cfg.Analysis.Reflection = "magic"

	svc, err := New(WithConfig(cfg), WithDecoder(mocks.NewMockDecoder(t)))
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), &locator.Result{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "everything")
	assert.Contains(t, err.Error(), "magic")
}

func TestAnalyzeCancelled(t *testing.T) {
	dec := mocks.NewMockDecoder(t)
	svc, err := New(WithConfig(testConfig()), WithDecoder(dec))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loc := &locator.Result{Units: []locator.Unit{{Name: "A.json", Data: []byte("{}")}}}
	_, err = svc.Analyze(ctx, loc, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExplain(t *testing.T) {
	dir := writeUnits(t, map[string]string{
		"app/Main.json": mainUnit,
		"app/Util.yaml": utilUnit,
	})
	svc, err := New(WithConfig(testConfig()))
	require.NoError(t, err)

	ex, err := svc.Explain(context.Background(), dir, "app.Main.helper()V")
	require.NoError(t, err)
	assert.True(t, ex.Reachable)
	assert.Equal(t, []string{"app.Main.main([Ljava/lang/String;)V", "app.Main.helper()V"}, ex.Path)

	ex, err = svc.Explain(context.Background(), dir, "app.Util.orphan()V")
	require.NoError(t, err)
	assert.False(t, ex.Reachable)

	_, err = svc.Explain(context.Background(), dir, "app.Main.nothing()V")
	assert.ErrorIs(t, err, deadcode.ErrUnknownMethod)

	_, err = svc.Explain(context.Background(), filepath.Join(dir, "missing"), "app.Main.helper()V")
	assert.ErrorIs(t, err, locator.ErrNotFound)
}
