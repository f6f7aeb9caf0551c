package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalid            = errors.New("invalid")
	ErrInputFormat        = errors.New("input format")
	ErrValidation         = errors.New("validation")
	ErrDetectionUncertain = errors.New("detection uncertain")
	ErrStore              = errors.New("store failure")
	ErrStoreConnection    = errors.New("store connection")
	ErrUnavailable        = errors.New("unavailable")
	ErrIrrelevant         = errors.New("irrelevant document")
)

// StoreError scopes a repository failure to the corpus it happened on.
type StoreError struct {
	Corpus string
	Op     string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Corpus, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func NewStoreError(corpus, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Corpus: corpus, Op: op, Err: err}
}
