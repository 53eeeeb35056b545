package signature

import "context"

// Repository stores signature data exactly as given; sealing happens in the
// service.
type Repository interface {
	// UpsertUser inserts under newID or overwrites the user's existing row,
	// returning the id that is stored.
	UpsertUser(ctx context.Context, newID, userID, data string) (string, error)
	GetByUser(ctx context.Context, userID string) (*UserSignature, error)
	InsertPatient(ctx context.Context, id, data string) error
	GetPatient(ctx context.Context, id string) (*PatientSignature, error)
}
