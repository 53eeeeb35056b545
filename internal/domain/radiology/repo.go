package radiology

import "context"

type Repository interface {
	Insert(ctx context.Context, a *Assessment) error
	GetByVisit(ctx context.Context, visitID string) (*Assessment, error)
	// RecordSubmission writes the radiology form_submissions row for a
	// visit, marking it submitted.
	RecordSubmission(ctx context.Context, submissionID, visitID, signatureID, userID string) error
}
