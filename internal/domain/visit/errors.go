package visit

import "errors"

var (
	ErrNotFound        = errors.New("visit not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidStatus   = errors.New("visit status must be open, in_progress, completed or cancelled")
)
