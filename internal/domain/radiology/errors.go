package radiology

import "errors"

var (
	ErrNotFound                   = errors.New("radiology assessment not found")
	ErrVisitRequired              = errors.New("Visit ID is required")
	ErrVisitNotFound              = errors.New("visit not found")
	ErrAlreadySubmitted           = errors.New("A radiology assessment has already been submitted for this visit")
	ErrPhysicianSignatureRequired = errors.New("Physician signature is required")
	ErrPatientSignatureRequired   = errors.New("Patient signature is required")
)
