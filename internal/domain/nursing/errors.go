package nursing

import "errors"

var (
	ErrNotFound          = errors.New("nursing assessment not found")
	ErrVisitNotFound     = errors.New("visit not found")
	ErrVisitRequired     = errors.New("Visit ID is required")
	ErrAssessmentLocked  = errors.New("This assessment has been completed and cannot be modified. Please contact an administrator if changes are needed.")
	ErrSignatureRequired = errors.New("Signature is required for final submission")
)
