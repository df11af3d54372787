package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"todo-ai/app/extraction"
	"todo-ai/app/metrics"
	"todo-ai/app/models"
)

// Extractor turns free-form text into task descriptions.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// TaskStore persists a batch of draft tasks atomically and returns them with their IDs,
// in insertion order.
type TaskStore interface {
	CreateTasks(ctx context.Context, drafts []models.DraftTask) ([]models.Task, error)
}

// IngestService turns a natural-language description into persisted tasks.
type IngestService struct {
	extractor Extractor
	store     TaskStore
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewIngestService creates a new instance of IngestService.
func NewIngestService(extractor Extractor, store TaskStore, logger *zap.Logger, m *metrics.Metrics) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &IngestService{
		extractor: extractor,
		store:     store,
		logger:    logger,
		metrics:   m,
	}
}

// Ingest extracts tasks from req.Text and stores them for req.OwnerID in one batch.
// Either every extracted task is written or none is.
func (s *IngestService) Ingest(ctx context.Context, req models.IngestRequest) ([]models.Task, error) {
	tasks, err := s.ingest(ctx, req)
	outcome := Outcome(err)
	s.metrics.IngestRequests.WithLabelValues(outcome).Inc()
	if err != nil {
		s.logger.Warn("ingest failed",
			zap.String("outcome", outcome),
			zap.String("owner_id", req.OwnerID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.TasksCreated.WithLabelValues(metrics.SourceIngest).Add(float64(len(tasks)))
	s.logger.Info("ingested tasks",
		zap.String("owner_id", req.OwnerID),
		zap.Int("count", len(tasks)),
	)
	return tasks, nil
}

func (s *IngestService) ingest(ctx context.Context, req models.IngestRequest) ([]models.Task, error) {
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.OwnerID) == "" {
		return nil, ErrValidation
	}

	items, err := s.extractor.Extract(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	drafts := make([]models.DraftTask, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item)
		if text == "" {
			continue
		}
		drafts = append(drafts, models.DraftTask{
			Text:      text,
			OwnerID:   req.OwnerID,
			Completed: false,
		})
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, extraction.ErrEmptyResult)
	}

	tasks, err := s.store.CreateTasks(ctx, drafts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: store returned no records", ErrPersistence)
	}
	return tasks, nil
}

// Outcome classifies an ingest error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, extraction.ErrModelInvocation):
		return metrics.OutcomeModelError
	case errors.Is(err, extraction.ErrEmptyResult):
		return metrics.OutcomeEmptyResult
	case errors.Is(err, ErrPersistence):
		return metrics.OutcomePersistenceError
	default:
		return metrics.OutcomeError
	}
}
