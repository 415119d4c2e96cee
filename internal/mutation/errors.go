package mutation

import "errors"

var (
	ErrMissingID     = errors.New("mutation: missing id")
	ErrMissingURL    = errors.New("mutation: missing url")
	ErrMissingMethod = errors.New("mutation: missing method")
	ErrInvalidURL    = errors.New("mutation: url must be absolute http(s)")
	ErrInvalidMethod = errors.New("mutation: invalid method")
)
