package nursing

import "context"

type Repository interface {
	// GetByVisit returns the visit's assessment. With lock set the rows are
	// locked until the surrounding transaction ends.
	GetByVisit(ctx context.Context, visitID string, lock bool) (*Assessment, error)
	// Insert writes the form submission and the assessment row.
	Insert(ctx context.Context, a *Assessment) error
	// Update rewrites the assessment and the submission's status and
	// signature.
	Update(ctx context.Context, a *Assessment) error
	ListByNurse(ctx context.Context, userID string, limit int) ([]*Summary, error)
}
