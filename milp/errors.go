package milp

import "errors"

var (
	// ErrMalformedScenario flags bad or missing input data: dangling
	// references, duplicate identifiers, or a satellite with no contact
	// opportunity inside the horizon. Fatal, never retried.
	ErrMalformedScenario = errors.New("malformed scenario")

	// ErrUnknownVariable flags a constraint or objective generator that
	// references a variable absent from the model. This is a programming
	// error in the generator, not a data error.
	ErrUnknownVariable = errors.New("unknown variable reference")

	// ErrDuplicateVariable flags a second registration of a variable name.
	ErrDuplicateVariable = errors.New("duplicate variable")

	// ErrModelFrozen flags structural mutation after the model was handed
	// to a solver. Build a new model to re-optimize.
	ErrModelFrozen = errors.New("model is frozen")
)
