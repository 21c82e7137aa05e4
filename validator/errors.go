package validator

import (
	"errors"
	"fmt"
)

// ErrInvalidDutyState marks duty state that fails consistency checks, such
// as a proposer duty vector shorter than the epoch. It signals a defect in
// the duty provider and is never part of normal slot-by-slot flow.
var ErrInvalidDutyState = errors.New("invalid duty state")

// ProducerError wraps a failure of an artifact producer. The decision that
// triggered production is left unmarked, so the same slot can be retried on
// a later tick.
type ProducerError struct {
	Kind DutyKind
	Err  error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("produce %s: %v", e.Kind, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}
