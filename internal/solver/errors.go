package solver

import (
	"github.com/rotisserie/eris"

	"github.com/ecoplan-lk/siteopt-cli/internal/model"
)

// ErrInvalidConfiguration marks caller errors detected before any solver
// work begins: empty start sets, degenerate bounds, negative weights or
// buffers. The sentinel is shared with geometry's Region construction so
// one check classifies both layers.
var ErrInvalidConfiguration = model.ErrInvalidConfiguration

// ErrNumericalFailure is returned only when every start diverged to
// non-finite values. A single failing start is discarded and the remaining
// starts continue.
var ErrNumericalFailure = eris.New("solver: numerical failure")

func invalidConfigf(format string, args ...any) error {
	return eris.Wrapf(ErrInvalidConfiguration, format, args...)
}
