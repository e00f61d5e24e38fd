package assessment

import "errors"

// Error taxonomy. Callers match with errors.Is.
var (
	// ErrValidation marks malformed input. The client must correct it.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidResponse marks a response for a question outside the
	// current batch. It also matches ErrValidation.
	ErrInvalidResponse = &classError{msg: "invalid response", class: ErrValidation}
	// ErrSessionNotFound marks an unknown or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed marks a session that has already completed.
	ErrSessionClosed = errors.New("session closed")
	// ErrTransientStore marks a store failure that is safe to retry.
	ErrTransientStore = errors.New("session store unavailable")
)

type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Unwrap() error { return e.class }
