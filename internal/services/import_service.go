package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"climadex/internal/models"
	"climadex/internal/repository"
	"climadex/internal/risk"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

// importColumns are the CSV header names accepted by the importer.
var importColumns = []string{"factory_name", "address", "country", "latitude", "longitude", "yearly_revenue"}

// ImportService handles bulk factory imports
type ImportService struct {
	repo      repository.FactoryRepository
	evaluator *risk.Evaluator
	logger    *logging.ContextLogger
	metrics   *metrics.Collector
}

// ImportResult contains import statistics
type ImportResult struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Duration          time.Duration
	Errors            []string
}

// NewImportService creates a new import service
func NewImportService(
	repo repository.FactoryRepository,
	evaluator *risk.Evaluator,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ImportService {
	return &ImportService{
		repo:      repo,
		evaluator: evaluator,
		logger:    logger.WithFields(logging.Fields{"component": "import_service"}),
		metrics:   metricsCollector,
	}
}

// ImportFile imports factories from a CSV file
func (s *ImportService) ImportFile(ctx context.Context, filePath string, batchSize int) (*ImportResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	s.logger.Info(ctx, "[IMPORT_START] Starting factory import", logging.Fields{
		"file_path":  filePath,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	return s.Import(ctx, file, batchSize)
}

// Import reads factories from CSV with the header
// factory_name,address,country,latitude,longitude,yearly_revenue (any order).
// Rows failing validation are counted and skipped; every valid row gets its
// temperature risk computed before it is inserted in batches of batchSize.
func (s *ImportService) Import(ctx context.Context, r io.Reader, batchSize int) (*ImportResult, error) {
	timer := s.metrics.NewTimer(s.metrics.ImportDuration)

	if batchSize < 1 {
		batchSize = 1
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty import file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Errors: make([]string, 0),
	}
	batch := make([]*models.Factory, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.repo.CreateFactoriesBatch(ctx, batch); err != nil {
			s.metrics.RecordImportError("db_error")
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		result.SuccessfulRecords += len(batch)
		batch = batch[:0]
		return nil
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		result.TotalRecords++

		factory, err := s.buildFactory(ctx, record, columns)
		if err != nil {
			result.FailedRecords++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))

			errorType := "evaluation_error"
			var validationErr *models.ValidationError
			if errors.As(err, &validationErr) {
				errorType = "validation_error"
			}
			s.metrics.RecordImportError(errorType)
			s.logger.Warn(ctx, "[IMPORT_ROW_REJECTED] Skipping factory row", logging.Fields{
				"line":       line,
				"error_type": errorType,
				"error":      err.Error(),
			})
			continue
		}

		batch = append(batch, factory)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}

	result.Duration = timer.ObserveDuration()

	s.logger.Info(ctx, "[IMPORT_COMPLETE] Factory import completed", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// mapColumns returns the record index of each import column.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(importColumns))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range importColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("header is missing column %s", name)
		}
	}

	return columns, nil
}

func (s *ImportService) buildFactory(ctx context.Context, record []string, columns map[string]int) (*models.Factory, error) {
	field := func(name string) string {
		i := columns[name]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	input := models.FactoryInput{
		FactoryName:   field("factory_name"),
		Address:       field("address"),
		Country:       field("country"),
		Latitude:      models.ParseNumber(field("latitude")),
		Longitude:     models.ParseNumber(field("longitude")),
		YearlyRevenue: models.ParseNumber(field("yearly_revenue")),
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	factory := input.ToFactory()

	result, err := s.evaluator.Evaluate(ctx, factory.Latitude, factory.Longitude)
	if err != nil {
		return nil, err
	}

	now := clock.Now().UTC()
	factory.TemperatureRisk = result
	factory.TemperatureRiskUpdatedAt = &now

	return factory, nil
}
