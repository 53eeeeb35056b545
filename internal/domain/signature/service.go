package signature

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/shorouk/radiology/internal/platform/hipaa"
)

// Service validates and seals signature images. Its writes join whatever
// transaction the caller has on ctx, so the nursing and radiology flows use
// it inside their own transactions.
type Service struct {
	repo   Repository
	cipher hipaa.FieldCipher
}

func NewService(repo Repository, cipher hipaa.FieldCipher) *Service {
	if cipher == nil {
		cipher = hipaa.PlainCipher{}
	}
	return &Service{repo: repo, cipher: cipher}
}

func (s *Service) seal(data string) (string, error) {
	data = strings.TrimSpace(data)
	if !ValidData(data) {
		return "", ErrInvalidData
	}
	return s.cipher.Seal(data)
}

// SaveUserSignature stores data as the user's signature, replacing any
// previous one, and returns the signature id. The id is stable across
// updates.
func (s *Service) SaveUserSignature(ctx context.Context, userID, data string) (string, error) {
	sealed, err := s.seal(data)
	if err != nil {
		return "", err
	}
	return s.repo.UpsertUser(ctx, "sig-"+uuid.NewString(), userID, sealed)
}

func (s *Service) GetUserSignature(ctx context.Context, userID string) (*UserSignature, error) {
	sig, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sig.Data, err = s.cipher.Open(sig.Data); err != nil {
		return nil, err
	}
	return sig, nil
}

// SavePatientSignature always inserts a new row.
func (s *Service) SavePatientSignature(ctx context.Context, data string) (string, error) {
	sealed, err := s.seal(data)
	if err != nil {
		return "", err
	}
	id := "pat-sig-" + uuid.NewString()
	if err := s.repo.InsertPatient(ctx, id, sealed); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) GetPatientSignature(ctx context.Context, id string) (*PatientSignature, error) {
	sig, err := s.repo.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if sig.Data, err = s.cipher.Open(sig.Data); err != nil {
		return nil, err
	}
	return sig, nil
}
