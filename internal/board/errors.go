package board

import "fmt"

// ValidationError reports bad caller input. Nothing was mutated; the caller
// should correct the input and retry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "board: " + e.Reason
}

// NotFoundError reports an operation on an unknown order number.
type NotFoundError struct {
	OrderNumber string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("board: order not found: %s", e.OrderNumber)
}

// TerminalStageError reports an advance requested on an order already in the
// last stage of its sequence. Nothing was mutated.
type TerminalStageError struct {
	OrderNumber string
	Stage       string
}

func (e *TerminalStageError) Error() string {
	return fmt.Sprintf("board: order %s has completed all stages (at %q)", e.OrderNumber, e.Stage)
}

// QuantityMismatchError reports a split whose sub-quantities do not sum to
// the order's quantity. Remainder is signed: positive means units are still
// undistributed, negative means the split overshoots.
type QuantityMismatchError struct {
	OrderNumber string
	Remainder   float64
}

func (e *QuantityMismatchError) Error() string {
	if e.Remainder > 0 {
		return fmt.Sprintf("board: split of %s leaves %g units undistributed", e.OrderNumber, e.Remainder)
	}
	return fmt.Sprintf("board: split of %s exceeds the order quantity by %g", e.OrderNumber, -e.Remainder)
}

// InconsistentStateError reports an order whose current stage is missing
// from its own stage sequence, e.g. after an external edit of the data
// files. The order is skipped rather than mutated.
type InconsistentStateError struct {
	OrderNumber  string
	CurrentStage string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("board: order %s: current stage %q not in its stage sequence", e.OrderNumber, e.CurrentStage)
}

// CapacityError reports a split fan-out beyond the suffix alphabet.
type CapacityError struct {
	OrderNumber string
	Requested   int
	Max         int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("board: cannot split %s into %d parts (max %d)", e.OrderNumber, e.Requested, e.Max)
}
