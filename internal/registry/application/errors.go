package application

import "errors"

var (
	// ErrNoSubscribers is a setup error: the store returned no subscribers.
	ErrNoSubscribers = errors.New("registry generator: no subscribers")
	// ErrNoDataForPeriod marks a subscriber without a current-period reading.
	ErrNoDataForPeriod = errors.New("registry generator: no data for period")
	// ErrFileNameTaken marks a subscriber whose registry file name was already
	// written by another subscriber in the same run.
	ErrFileNameTaken = errors.New("registry generator: file name already taken")
	// ErrRunCanceled is returned with a partial summary when the context ends mid-run.
	ErrRunCanceled = errors.New("registry generator: run canceled")
)

// SetupError is a whole-run failure raised before any subscriber is processed.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	if e == nil {
		return ""
	}
	return "registry generator: " + e.Op + ": " + e.Err.Error()
}

func (e *SetupError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsSetupError reports whether err is a SetupError.
func IsSetupError(err error) bool {
	var setupErr *SetupError
	return errors.As(err, &setupErr)
}
