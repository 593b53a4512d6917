package errors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalid          = errors.New("invalid input")
	ErrTooLarge         = errors.New("payload too large")
	ErrTooMany          = errors.New("too many requests")
	ErrSchema           = errors.New("schema error")
	ErrStorage          = errors.New("storage error")
	ErrModelUnavailable = errors.New("model unavailable")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrTooLarge)
}
