package rank

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals a malformed ranking request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProvider signals that the similarity provider failed for some record.
	ErrProvider = errors.New("similarity provider failed")
)

// InvalidArgumentError reports which argument was rejected.
type InvalidArgumentError struct {
	Name   string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidArgument.Error(), e.Name, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// ProviderError aborts a ranking call. It names the query and the record whose
// score could not be computed.
type ProviderError struct {
	Query    string
	Index    int
	RecordID int64
	Question string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: query %q, record %d (#%d %q): %v",
		ErrProvider.Error(), e.Query, e.RecordID, e.Index, e.Question, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrProvider alongside the wrapped cause.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }
