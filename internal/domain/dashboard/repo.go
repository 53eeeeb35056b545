package dashboard

import "context"

type Repository interface {
	RadiologyQueue(ctx context.Context, limit int) ([]*QueueItem, error)
}
