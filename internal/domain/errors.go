package domain

import "errors"

// ErrValidation marks input that failed field validation. Package specific
// validation errors wrap it so transports can map them uniformly.
var ErrValidation = errors.New("validation failed")
