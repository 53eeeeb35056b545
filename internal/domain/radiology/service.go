package radiology

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shorouk/radiology/internal/domain/patient"
	"github.com/shorouk/radiology/internal/domain/signature"
	"github.com/shorouk/radiology/internal/domain/visit"
	"github.com/shorouk/radiology/internal/platform/db"
	"github.com/shorouk/radiology/internal/platform/metrics"
	"github.com/shorouk/radiology/internal/platform/websocket"
)

type VisitStore interface {
	Get(ctx context.Context, id string) (*visit.Visit, error)
	MarkInProgress(ctx context.Context, id string) (bool, error)
}

type PatientFinder interface {
	GetBySSN(ctx context.Context, ssn string) (*patient.Patient, error)
}

// SignatureStore covers both the physician's reusable signature and the
// one-off patient consent signature.
type SignatureStore interface {
	SaveUserSignature(ctx context.Context, userID, data string) (string, error)
	GetUserSignature(ctx context.Context, userID string) (*signature.UserSignature, error)
	SavePatientSignature(ctx context.Context, data string) (string, error)
}

type Service struct {
	repo     Repository
	visits   VisitStore
	patients PatientFinder
	sigs     SignatureStore
	tx       db.TxRunner
	events   websocket.EventPublisher
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(repo Repository, visits VisitStore, patients PatientFinder, sigs SignatureStore,
	tx db.TxRunner, events websocket.EventPublisher, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		visits:   visits,
		patients: patients,
		sigs:     sigs,
		tx:       tx,
		events:   events,
		metrics:  m,
		logger:   logger,
	}
}

type Result struct {
	AssessmentID string `json:"assessment_id"`
	SubmissionID string `json:"submission_id"`
	VisitID      string `json:"visit_id"`
}

func (s *Service) visit(ctx context.Context, id string) (*visit.Visit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrVisitRequired
	}
	v, err := s.visits.Get(ctx, id)
	if errors.Is(err, visit.ErrNotFound) {
		return nil, ErrVisitNotFound
	}
	return v, err
}

// Submit records the physician's radiology assessment for a visit. The two
// signatures and the assessment are written in one transaction; the
// form_submissions bookkeeping row and the visit status change follow
// afterwards and only log on failure.
func (s *Service) Submit(ctx context.Context, userID string, f Form) (*Result, error) {
	v, err := s.visit(ctx, f.VisitID)
	if err != nil {
		return nil, err
	}
	a := f.Assessment()
	a.VisitID = v.VisitID

	physicianSig := strings.TrimSpace(f.PhysicianSignature)
	if physicianSig == "" {
		return nil, ErrPhysicianSignatureRequired
	}
	patientSig := strings.TrimSpace(f.PatientSignature)
	if patientSig == "" {
		return nil, ErrPatientSignatureRequired
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByVisit(ctx, v.VisitID); err == nil {
		return nil, ErrAlreadySubmitted
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	submissionID := "sub-" + uuid.NewString()
	a.AssessmentID = "radio-" + uuid.NewString()
	a.SubmissionID = &submissionID
	a.PhysicianID = &userID

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		id, err := s.sigs.SaveUserSignature(ctx, userID, physicianSig)
		if err != nil {
			return err
		}
		a.PhysicianSignatureID = id
		if a.PatientSignatureID, err = s.sigs.SavePatientSignature(ctx, patientSig); err != nil {
			return err
		}
		return s.repo.Insert(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.With().Str("visit_id", v.VisitID).Str("assessment_id", a.AssessmentID).Logger()
	if err := s.repo.RecordSubmission(ctx, submissionID, v.VisitID, a.PhysicianSignatureID, userID); err != nil {
		log.Warn().Err(err).Msg("radiology form submission record not written")
		s.metrics.SecondaryWriteFailed("radiology_form_submission")
	}
	if _, err := s.visits.MarkInProgress(ctx, v.VisitID); err != nil {
		log.Warn().Err(err).Msg("visit status not updated after radiology submission")
		s.metrics.SecondaryWriteFailed("visit_status")
	}
	s.metrics.RadiologySubmitted()

	err = s.events.Publish(ctx, websocket.Event{
		Type:    websocket.EventRadiologySubmitted,
		Channel: websocket.ChannelRadiology,
		Payload: map[string]interface{}{
			"visit_id":      v.VisitID,
			"patient_ssn":   v.PatientSSN,
			"patient_name":  v.PatientName,
			"assessment_id": a.AssessmentID,
			"physician_id":  userID,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to publish radiology submission")
	}

	return &Result{AssessmentID: a.AssessmentID, SubmissionID: submissionID, VisitID: v.VisitID}, nil
}

func (s *Service) GetByVisit(ctx context.Context, visitID string) (*Assessment, error) {
	return s.repo.GetByVisit(ctx, visitID)
}

// Start checks that a visit can still take a radiology assessment.
func (s *Service) Start(ctx context.Context, visitID string) (*visit.Visit, error) {
	v, err := s.visit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByVisit(ctx, v.VisitID); err == nil {
		return nil, ErrAlreadySubmitted
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return v, nil
}

// FormContext is everything the radiology form page renders.
type FormContext struct {
	Visit              *visit.Visit  `json:"visit"`
	Patient            *patient.View `json:"patient"`
	PhysicianSignature *string       `json:"physician_signature"`
	Assessment         *Assessment   `json:"assessment"`
	Submitted          bool          `json:"submitted"`
}

func (s *Service) FormContext(ctx context.Context, visitID, userID string) (*FormContext, error) {
	v, err := s.visit(ctx, visitID)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetBySSN(ctx, v.PatientSSN)
	if err != nil {
		return nil, err
	}
	view := patient.NewView(p, v.VisitDate)
	fc := &FormContext{Visit: v, Patient: &view}

	sig, err := s.sigs.GetUserSignature(ctx, userID)
	switch {
	case err == nil:
		fc.PhysicianSignature = &sig.Data
	case !errors.Is(err, signature.ErrNotFound):
		// A signature that cannot be opened should not block the form.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("stored signature unavailable")
	}

	a, err := s.repo.GetByVisit(ctx, v.VisitID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	fc.Assessment = a
	fc.Submitted = a != nil
	return fc, nil
}
