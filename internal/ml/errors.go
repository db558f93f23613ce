package ml

import "errors"

// ErrNotTrained is returned when a prediction is attempted before the model
// has been trained. Callers must check trained status or handle the failure.
var ErrNotTrained = errors.New("model must be trained before making predictions")
