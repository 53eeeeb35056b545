package patient

import "errors"

var (
	ErrNotFound = errors.New("patient not found")
	ErrExists   = errors.New("patient already exists")
	ErrBadSSN   = errors.New("SSN must be exactly 14 digits")
)
