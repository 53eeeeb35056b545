package nursing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/domain/visit"
	"github.com/shorouk/radiology/internal/platform/db"
	"github.com/shorouk/radiology/internal/platform/metrics"
	"github.com/shorouk/radiology/internal/platform/websocket"
)

const historyLimit = 50

// VisitFinder is the part of the visit service the nursing form needs.
type VisitFinder interface {
	Get(ctx context.Context, id string) (*visit.Visit, error)
}

// SignatureSaver stores the nurse's current signature and returns its id.
type SignatureSaver interface {
	SaveUserSignature(ctx context.Context, userID, data string) (string, error)
}

type Service struct {
	repo    Repository
	visits  VisitFinder
	sigs    SignatureSaver
	tx      db.TxRunner
	events  websocket.EventPublisher
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, visits VisitFinder, sigs SignatureSaver, tx db.TxRunner,
	events websocket.EventPublisher, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		visits:  visits,
		sigs:    sigs,
		tx:      tx,
		events:  events,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Result identifies what Submit wrote.
type Result struct {
	SubmissionID string `json:"submission_id"`
	AssessmentID string `json:"assessment_id"`
	Status       string `json:"submission_status"`
}

// Submit saves the nurse form for a visit as a draft or as the final signed
// assessment. A visit has at most one nursing submission; saving again
// updates it in place until it has been submitted, after which it is
// read-only.
func (s *Service) Submit(ctx context.Context, userID string, f Form) (*Result, error) {
	f.VisitID = strings.TrimSpace(f.VisitID)
	if f.VisitID == "" {
		return nil, ErrVisitRequired
	}
	v, err := s.visits.Get(ctx, f.VisitID)
	if err != nil {
		if errors.Is(err, visit.ErrNotFound) {
			return nil, ErrVisitNotFound
		}
		return nil, err
	}

	isDraft := f.IsDraft()
	status := StatusSubmitted
	if isDraft {
		status = StatusDraft
	}

	var res Result
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByVisit(ctx, v.VisitID, true)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if existing != nil && existing.Locked() {
			return ErrAssessmentLocked
		}
		if !isDraft && strings.TrimSpace(f.NurseSignature) == "" {
			return ErrSignatureRequired
		}

		a := existing
		if a == nil {
			a = &Assessment{
				AssessmentID: "nurse-" + uuid.NewString(),
				SubmissionID: "sub-" + uuid.NewString(),
				VisitID:      v.VisitID,
			}
		}
		f.apply(a)
		a.SubmissionStatus = status
		a.AssessedBy = &userID
		a.AssessedAt = s.now()
		if !isDraft {
			if err := validateFinal(a); err != nil {
				return err
			}
			sigID, err := s.sigs.SaveUserSignature(ctx, userID, f.NurseSignature)
			if err != nil {
				return err
			}
			a.NurseSignatureID = &sigID
		}

		if existing == nil {
			err = s.repo.Insert(ctx, a)
		} else {
			err = s.repo.Update(ctx, a)
		}
		if err != nil {
			return err
		}
		res = Result{SubmissionID: a.SubmissionID, AssessmentID: a.AssessmentID, Status: status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.NursingSaved(status)
	if !isDraft {
		s.publish(ctx, v, &res, userID)
	}
	return &res, nil
}

// publish tells physician dashboards a visit has joined the radiology queue.
// Delivery is best-effort.
func (s *Service) publish(ctx context.Context, v *visit.Visit, res *Result, userID string) {
	err := s.events.Publish(ctx, websocket.Event{
		Type:    websocket.EventNursingSubmitted,
		Channel: websocket.ChannelNursing,
		Payload: map[string]interface{}{
			"visit_id":      v.VisitID,
			"patient_ssn":   v.PatientSSN,
			"patient_name":  v.PatientName,
			"submission_id": res.SubmissionID,
			"assessment_id": res.AssessmentID,
			"submitted_by":  userID,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("visit_id", v.VisitID).Msg("failed to publish nursing submission")
	}
}

// Draft is what the form page needs to resume: the visit and, when one has
// been saved, the assessment.
type Draft struct {
	Visit      *visit.Visit `json:"visit"`
	Assessment *Assessment  `json:"assessment"`
	Locked     bool         `json:"locked"`
}

func (s *Service) GetByVisit(ctx context.Context, visitID string) (*Draft, error) {
	v, err := s.visits.Get(ctx, visitID)
	if err != nil {
		if errors.Is(err, visit.ErrNotFound) {
			return nil, ErrVisitNotFound
		}
		return nil, err
	}
	a, err := s.repo.GetByVisit(ctx, visitID, false)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	d := &Draft{Visit: v, Assessment: a}
	if a != nil {
		d.Locked = a.Locked()
	}
	return d, nil
}

func (s *Service) ListByNurse(ctx context.Context, userID string) ([]*Summary, error) {
	items, err := s.repo.ListByNurse(ctx, userID, historyLimit)
	if items == nil {
		items = []*Summary{}
	}
	return items, err
}
