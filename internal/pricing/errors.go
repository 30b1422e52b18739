package pricing

import "errors"

var (
	ErrAdapterNotFound          = errors.New("adapter_not_found")
	ErrIncompleteConfiguration  = errors.New("incomplete_configuration")
	ErrCalculationInconsistency = errors.New("calculation_inconsistency")
	ErrDirtyCalculation         = errors.New("dirty_calculation_context")
)
