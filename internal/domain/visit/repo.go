package visit

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	Get(ctx context.Context, id string) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	// Transition moves a visit from one status to another and reports
	// whether the row was in the from status.
	Transition(ctx context.Context, id, from, to string) (bool, error)
	// Delete removes the visit and every row hanging off it. Callers run it
	// inside a transaction.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Visit, int, error)
	LatestForPatient(ctx context.Context, ssn string) (*Visit, error)
	ListForNurse(ctx context.Context, nurseID string, limit int) ([]*NurseVisit, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}
