package assessment

import (
	"context"

	"github.com/shorouk/radiology/internal/domain/nursing"
	"github.com/shorouk/radiology/internal/domain/radiology"
)

type Repository interface {
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Summary, int, error)
	Summary(ctx context.Context, id string) (*Summary, error)
	Nursing(ctx context.Context, submissionID string) (*nursing.Assessment, error)
	Radiology(ctx context.Context, assessmentID string) (*radiology.Assessment, error)
	NursingForVisit(ctx context.Context, visitID string) (*nursing.Assessment, error)
	RadiologyForVisit(ctx context.Context, visitID string) (*radiology.Assessment, error)
	UserName(ctx context.Context, userID string) (*string, error)
	DeleteNursing(ctx context.Context, submissionID string) (bool, error)
	DeleteRadiology(ctx context.Context, assessmentID string) (bool, error)
	Count(ctx context.Context) (int, error)
}
