package patient

import "context"

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetBySSN(ctx context.Context, ssn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, ssn string) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, q string, limit int) ([]*Summary, error)
	Count(ctx context.Context) (int, error)
}
