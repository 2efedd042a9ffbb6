package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"climadex/internal/models"
	"climadex/internal/repository"
	"climadex/internal/risk"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

const (
	DefaultPageSize = 15
	MaxPageSize     = 100
)

// FactoryService handles factory operations
type FactoryService struct {
	repo            repository.FactoryRepository
	evaluator       *risk.Evaluator
	logger          *logging.ContextLogger
	metrics         *metrics.Collector
	defaultPageSize int
	maxPageSize     int
}

// ListParams describes one page of a factory listing. Page is 1-based.
type ListParams struct {
	Query    string
	Risk     *models.TemperatureRisk
	Page     int
	PageSize int
}

// RecomputeResult contains batch recompute statistics
type RecomputeResult struct {
	Updated  int
	Duration time.Duration
}

// NewFactoryService creates a new factory service
func NewFactoryService(
	repo repository.FactoryRepository,
	evaluator *risk.Evaluator,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *FactoryService {
	return &FactoryService{
		repo:            repo,
		evaluator:       evaluator,
		logger:          logger.WithFields(logging.Fields{"component": "factory_service"}),
		metrics:         metricsCollector,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
	}
}

// SetPageSizes overrides the listing page size used when none is requested
// and the largest page size a caller may ask for.
func (s *FactoryService) SetPageSizes(defaultSize, maxSize int) {
	if defaultSize > 0 {
		s.defaultPageSize = defaultSize
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
	if s.defaultPageSize > s.maxPageSize {
		s.defaultPageSize = s.maxPageSize
	}
}

// GetFactory retrieves a single factory
func (s *FactoryService) GetFactory(ctx context.Context, id int64) (*models.Factory, error) {
	return s.repo.GetFactory(ctx, id)
}

// ListFactories returns one page of factories matching params, ordered by id.
// One extra row is requested to tell whether a further page exists.
func (s *FactoryService) ListFactories(ctx context.Context, params ListParams) (*models.FactoriesPage, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}

	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	// A page whose offset does not fit in an int lies past any stored row.
	if page-1 > math.MaxInt/pageSize {
		return &models.FactoriesPage{Factories: []*models.Factory{}}, nil
	}

	filter := repository.FactoryFilter{
		Risk:   params.Risk,
		Limit:  pageSize + 1,
		Offset: (page - 1) * pageSize,
	}

	if q := strings.TrimSpace(params.Query); q != "" {
		filter.NameContains = &q
	}

	factories, err := s.repo.ListFactories(ctx, filter)
	if err != nil {
		return nil, err
	}

	hasMore := len(factories) > pageSize
	if hasMore {
		factories = factories[:pageSize]
	}

	return &models.FactoriesPage{
		Factories: factories,
		HasMore:   hasMore,
	}, nil
}

// CreateFactory validates input, computes its temperature risk and stores it.
// Invalid input is rejected before anything is looked up or written.
func (s *FactoryService) CreateFactory(ctx context.Context, input models.FactoryInput) (*models.Factory, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	factory := input.ToFactory()

	result, err := s.evaluator.Evaluate(ctx, factory.Latitude, factory.Longitude)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate temperature risk: %w", err)
	}

	now := clock.Now().UTC()
	factory.TemperatureRisk = result
	factory.TemperatureRiskUpdatedAt = &now

	if err := s.repo.CreateFactory(ctx, factory); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[FACTORY_CREATED] Factory created", logging.Fields{
		"factory_id":       factory.ID,
		"factory_name":     factory.FactoryName,
		"temperature_risk": factory.TemperatureRisk,
	})

	return factory, nil
}

// FactoryTemperatures returns the projected temperature evolution at a factory's location
func (s *FactoryService) FactoryTemperatures(ctx context.Context, id int64) ([]models.TemperatureSample, error) {
	factory, err := s.repo.GetFactory(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.evaluator.Temperatures(ctx, factory.Latitude, factory.Longitude)
}

// RecomputeAllRisk re-evaluates and overwrites the temperature risk of every
// factory. Rows are updated one at a time without a wrapping transaction, so a
// failure part-way leaves earlier rows updated; the returned result still
// carries the count written so far.
func (s *FactoryService) RecomputeAllRisk(ctx context.Context) (*RecomputeResult, error) {
	timer := s.metrics.NewTimer(s.metrics.RecomputeDuration)
	result := &RecomputeResult{}

	defer func() {
		result.Duration = timer.ObserveDuration()
	}()

	s.logger.Info(ctx, "[RECOMPUTE_START] Starting temperature risk recompute", logging.Fields{
		"stage": "INITIALIZATION",
	})

	if err := s.repo.EnsureSchema(ctx); err != nil {
		s.metrics.RecomputeErrorsTotal.Inc()
		return result, err
	}

	locations, err := s.repo.ListFactoryLocations(ctx)
	if err != nil {
		s.metrics.RecomputeErrorsTotal.Inc()
		return result, err
	}

	for _, loc := range locations {
		computed, err := s.evaluator.Evaluate(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			s.metrics.RecomputeErrorsTotal.Inc()
			s.logger.Error(ctx, "[RECOMPUTE_ERROR] Risk evaluation failed", logging.Fields{
				"factory_id": loc.ID,
				"updated":    result.Updated,
				"stage":      "EVALUATION",
			}, err)
			return result, fmt.Errorf("failed to evaluate factory %d: %w", loc.ID, err)
		}

		if err := s.repo.UpdateTemperatureRisk(ctx, loc.ID, computed, clock.Now().UTC()); err != nil {
			s.metrics.RecomputeErrorsTotal.Inc()
			s.logger.Error(ctx, "[RECOMPUTE_ERROR] Risk update failed", logging.Fields{
				"factory_id": loc.ID,
				"updated":    result.Updated,
				"stage":      "UPDATE",
			}, err)
			return result, fmt.Errorf("failed to update factory %d: %w", loc.ID, err)
		}

		result.Updated++
		s.metrics.RecomputeRowsTotal.Inc()
	}

	s.logger.Info(ctx, "[RECOMPUTE_COMPLETE] Temperature risk recompute completed", logging.Fields{
		"updated":          result.Updated,
		"duration_seconds": timer.Elapsed().Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}
