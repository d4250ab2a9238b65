package analyzer

import (
	"context"

	"github.com/panbanda/deadwood/pkg/program"
)

// ProgramAnalyzer is implemented by whole-program analyzers. The program is
// complete and read-only by the time Analyze is called, apart from usage
// flags the analyzer itself owns.
type ProgramAnalyzer[T any] interface {
	// Analyze runs the analysis. The context can carry a Tracker and is
	// checked for cancellation between phases.
	Analyze(ctx context.Context, prog *program.Program) (T, error)
}
