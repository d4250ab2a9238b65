package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/panbanda/deadwood/internal/cache"
	"github.com/panbanda/deadwood/internal/fileproc"
	"github.com/panbanda/deadwood/internal/locator"
	"github.com/panbanda/deadwood/pkg/analyzer"
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
	"github.com/panbanda/deadwood/pkg/analyzer/entrypoint"
	"github.com/panbanda/deadwood/pkg/analyzer/reachability"
	"github.com/panbanda/deadwood/pkg/analyzer/reflection"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/panbanda/deadwood/pkg/decoder"
	"github.com/panbanda/deadwood/pkg/models"
	"github.com/panbanda/deadwood/pkg/program"
)

// Service orchestrates locate, decode and analysis.
type Service struct {
	config  *config.Config
	decoder decoder.Decoder
	cache   *cache.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithDecoder sets the unit decoder (for testing or binary decoders).
func WithDecoder(d decoder.Decoder) Option {
	return func(s *Service) {
		s.decoder = d
	}
}

// WithCache sets the decoded unit cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New creates a new analysis service. Without WithDecoder the record
// decoder is used.
func New(opts ...Option) (*Service, error) {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	if s.decoder == nil {
		d, err := decoder.NewRecordDecoder()
		if err != nil {
			return nil, err
		}
		s.decoder = d
	}
	return s, nil
}

// Config returns the configuration in use.
func (s *Service) Config() *config.Config {
	return s.config
}

// Options configures a single run.
type Options struct {
	// OnUnit is called after each unit is decoded.
	OnUnit func()
	// OnPhase is called after each analysis phase.
	OnPhase analyzer.ProgressFunc
}

// Result is the outcome of a run.
type Result struct {
	Report *models.Report
	Target locator.TargetType
	Path   string
	// Units is the number of units handed to the decoder.
	Units int
	// CacheHits counts units served from the cache.
	CacheHits int
	// Skipped lists units over the size limit.
	Skipped []string
	// Failed holds the units the decoder rejected, nil when none were.
	Failed *fileproc.ProcessingErrors
}

// Locate resolves path to its compiled units.
func (s *Service) Locate(path string) (*locator.Result, error) {
	return locator.Locate(path, locator.WithConfig(s.config))
}

// AnalyzePath locates, decodes and analyzes the units under path.
func (s *Service) AnalyzePath(ctx context.Context, path string, opts Options) (*Result, error) {
	loc, err := s.Locate(path)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, loc, opts)
}

type decoded struct {
	class  *models.Class
	cached bool
}

// Analyze decodes the located units in parallel, builds the program and
// runs the dead code pipeline. Units that fail to read or decode are
// reported in the result and do not stop the run.
func (s *Service) Analyze(ctx context.Context, loc *locator.Result, opts Options) (*Result, error) {
	dc, err := s.newAnalyzer()
	if err != nil {
		return nil, err
	}

	prog, result, err := s.build(ctx, loc, opts.OnUnit)
	if err != nil {
		return nil, err
	}

	if opts.OnPhase != nil {
		ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(opts.OnPhase))
	}
	rep, err := dc.Analyze(ctx, prog)
	if err != nil {
		return nil, err
	}
	result.Report = rep
	return result, nil
}

// Explain locates and decodes the units under path and explains the
// method with the given key.
func (s *Service) Explain(ctx context.Context, path, key string) (*deadcode.Explanation, error) {
	dc, err := s.newAnalyzer()
	if err != nil {
		return nil, err
	}
	loc, err := s.Locate(path)
	if err != nil {
		return nil, err
	}
	prog, _, err := s.build(ctx, loc, nil)
	if err != nil {
		return nil, err
	}
	return dc.Explain(ctx, prog, key)
}

// build decodes loc in parallel and inserts the classes in unit order.
func (s *Service) build(ctx context.Context, loc *locator.Result, onUnit fileproc.ProgressFunc) (*program.Program, *Result, error) {
	outcomes := fileproc.MapIndexed(ctx, loc.Units, s.config.Analysis.Workers, s.decodeUnit, onUnit)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	result := &Result{
		Target:  loc.Type,
		Path:    loc.Path,
		Units:   len(loc.Units),
		Skipped: loc.Skipped,
	}

	b := program.NewBuilder()
	for _, f := range loc.Failures {
		b.AddFailure(f.Unit, f.Err)
	}
	result.Failed = fileproc.CollectErrors(loc.Units, outcomes, func(u locator.Unit) string { return u.Name })
	if result.Failed != nil {
		for _, pe := range result.Failed.Errors {
			b.AddFailure(pe.Path, pe.Err)
		}
	}
	for i, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if o.Value.cached {
			result.CacheHits++
		}
		if err := b.Add(loc.Units[i].Name, o.Value.class); err != nil {
			return nil, nil, err
		}
	}
	return b.Build(), result, nil
}

// Forget drops the cached classes of the given unit files. Paths that are
// not unit files, such as archives, are ignored.
func (s *Service) Forget(paths []string) error {
	var errs []error
	for _, p := range paths {
		if !s.config.IsUnit(p) {
			continue
		}
		if err := s.cache.InvalidateClass(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) decodeUnit(_ context.Context, u locator.Unit) (decoded, error) {
	if cls, ok := s.cache.GetClass(u.Name, u.Data); ok {
		return decoded{class: cls, cached: true}, nil
	}
	cls, err := s.decoder.Decode(u.Data)
	if err != nil {
		return decoded{}, &program.DecodeError{Unit: u.Name, Err: err}
	}
	_ = s.cache.SetClass(u.Name, u.Data, cls)
	return decoded{class: cls}, nil
}

// newAnalyzer translates the analysis config into pipeline options.
func (s *Service) newAnalyzer() (*deadcode.Analyzer, error) {
	a := s.config.Analysis

	var errs []error
	mode, err := reachability.ParseMode(a.Mode)
	if err != nil {
		errs = append(errs, err)
	}
	policies, err := entrypoint.PoliciesByName(a.EntryPoints)
	if err != nil {
		errs = append(errs, err)
	}
	strategy, err := reflection.StrategyByName(a.Reflection)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid analysis config: %w", errors.Join(errs...))
	}

	return deadcode.New(
		deadcode.WithMode(mode),
		deadcode.WithPolicies(policies...),
		deadcode.WithStrategy(strategy),
		deadcode.WithDeadBlocks(a.DeadBlocks),
		deadcode.WithCycles(a.Cycles),
	), nil
}
