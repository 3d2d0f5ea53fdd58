package assignment

import "errors"

// ErrInvalidInput marks request validation failures. The delivery layer
// maps it to HTTP 400.
var ErrInvalidInput = errors.New("invalid input")
