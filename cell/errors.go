package cell

import (
	"fmt"

	"github.com/pthm-cable/organoid/components"
)

// Error categories, shared with the environment through components.
var (
	ErrConfig         = components.ErrConfig
	ErrUsage          = components.ErrUsage
	ErrNotImplemented = components.ErrNotImplemented
)

var (
	// ErrMissingInputProvider is returned when a cell has no input data provider.
	ErrMissingInputProvider = fmt.Errorf("%w: cell has no input data provider", ErrConfig)
	// ErrEmptyPrediction is returned when a predictor produced no usable value.
	ErrEmptyPrediction = fmt.Errorf("%w: empty prediction", ErrUsage)
	// ErrWrongState is returned when a module is attached to a cell of the wrong kind.
	ErrWrongState = fmt.Errorf("%w: module does not match cell state", ErrUsage)
	// ErrUnknownSynapse is returned for a handle that is not in the arena.
	ErrUnknownSynapse = fmt.Errorf("%w: unknown synapse handle", ErrUsage)
)
