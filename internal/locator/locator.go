// Package locator resolves an input path to the compiled units it holds.
package locator

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/panbanda/deadwood/internal/scanner"
	"github.com/panbanda/deadwood/pkg/config"
)

// TargetType indicates what the input path resolved to.
type TargetType string

const (
	TargetFile      TargetType = "file"
	TargetDirectory TargetType = "directory"
	TargetArchive   TargetType = "archive"
)

// Unit is one compiled unit ready for decoding.
type Unit struct {
	// Name identifies the unit in reports: a file path, or
	// archive!/entry for archive members.
	Name string
	Data []byte
}

// Failure records a unit that could not be read.
type Failure struct {
	Unit string
	Err  error
}

// Result contains the located units.
type Result struct {
	Type     TargetType
	Path     string
	Units    []Unit
	Failures []Failure
	// Skipped lists units over the size limit.
	Skipped []string
}

var (
	ErrNotFound    = errors.New("no units found")
	ErrUnsupported = errors.New("unsupported input")
)

// NotFoundError reports a path that does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Options configures the Locate behavior.
type Options struct {
	Config *config.Config
}

// Option is a functional option for Locate.
type Option func(*Options)

// WithConfig sets the configuration used for extensions, exclusions and
// size limits.
func WithConfig(cfg *config.Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// Locate resolves path to units. A file is read directly, an archive is
// expanded, and a directory is scanned recursively.
// Units are returned sorted by name.
func Locate(target string, opts ...Option) (*Result, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	cfg := options.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, &NotFoundError{Path: target, Err: err}
	}

	s := scanner.NewScanner(cfg)
	result := &Result{Path: target}

	var files []string
	switch {
	case info.IsDir():
		result.Type = TargetDirectory
		files, err = s.ScanDir(target)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", target, err)
		}
	case cfg.IsArchive(target):
		result.Type = TargetArchive
		files = []string{target}
	case cfg.IsUnit(target):
		result.Type = TargetFile
		files = []string{target}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, target)
	}

	// The size limit applies to units, never to whole archives.
	var units, archives []string
	for _, f := range files {
		if cfg.IsArchive(f) {
			archives = append(archives, f)
		} else {
			units = append(units, f)
		}
	}
	units, result.Skipped = scanner.FilterBySize(units, cfg.Input.MaxUnitSize)

	for _, a := range archives {
		readArchive(a, cfg, result)
	}
	for _, f := range units {
		data, err := os.ReadFile(f)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Unit: f, Err: err})
			continue
		}
		result.Units = append(result.Units, Unit{Name: f, Data: data})
	}

	sort.Slice(result.Units, func(i, j int) bool { return result.Units[i].Name < result.Units[j].Name })
	if len(result.Units) == 0 && len(result.Failures) == 0 {
		return result, fmt.Errorf("%w in %s", ErrNotFound, target)
	}
	return result, nil
}

// readArchive appends every unit entry of a zip or jar archive.
func readArchive(archive string, cfg *config.Config, result *Result) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		result.Failures = append(result.Failures, Failure{Unit: archive, Err: err})
		return
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !cfg.IsUnit(f.Name) || cfg.ShouldExclude(f.Name) {
			continue
		}
		name := ArchiveUnitName(archive, f.Name)
		if cfg.Input.MaxUnitSize > 0 && int64(f.UncompressedSize64) > cfg.Input.MaxUnitSize {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Unit: name, Err: err})
			continue
		}
		result.Units = append(result.Units, Unit{Name: name, Data: data})
	}
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ArchiveUnitName names an archive member the way jar URLs do.
func ArchiveUnitName(archive, entry string) string {
	return filepath.ToSlash(archive) + "!/" + entry
}
