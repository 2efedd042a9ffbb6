package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"climadex/internal/models"
	"climadex/pkg/database"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

// FactoryRepository provides data access for factories
type FactoryRepository interface {
	// Read operations
	GetFactory(ctx context.Context, id int64) (*models.Factory, error)
	ListFactories(ctx context.Context, filter FactoryFilter) ([]*models.Factory, error)
	ListFactoryLocations(ctx context.Context) ([]models.FactoryLocation, error)

	// Write operations
	CreateFactory(ctx context.Context, factory *models.Factory) error
	CreateFactoriesBatch(ctx context.Context, factories []*models.Factory) error
	UpdateTemperatureRisk(ctx context.Context, id int64, risk models.TemperatureRisk, computedAt time.Time) error

	// Utility operations
	EnsureSchema(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

// FactoryFilter defines filters for listing factories. Nil fields do not filter.
type FactoryFilter struct {
	NameContains *string
	Risk         *models.TemperatureRisk
	Limit        int
	Offset       int
}

const factoryColumns = `id, factory_name, address, country, latitude, longitude, yearly_revenue,
		       temperature_risk, temperature_risk_updated_at`

const insertFactoryQuery = `
		INSERT INTO factories (
			factory_name, address, country, latitude, longitude, yearly_revenue,
			temperature_risk, temperature_risk_updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// factoryRepository implements FactoryRepository
type factoryRepository struct {
	db      *database.DB
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewFactoryRepository creates a new factory repository
func NewFactoryRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) FactoryRepository {
	return &factoryRepository{
		db:      db,
		logger:  logger.WithFields(logging.Fields{"component": "factory_repository"}),
		metrics: metricsCollector,
	}
}

// GetFactory retrieves a factory by id
func (r *factoryRepository) GetFactory(ctx context.Context, id int64) (*models.Factory, error) {
	query := `SELECT ` + factoryColumns + ` FROM factories WHERE id = ?`

	var factory models.Factory
	err := r.db.GetContext(ctx, "get_factory", &factory, query, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "factory",
			ID:       strconv.FormatInt(id, 10),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get factory: %w", err)
	}

	return &factory, nil
}

// ListFactories retrieves factories matching filter, ordered by id
func (r *factoryRepository) ListFactories(ctx context.Context, filter FactoryFilter) ([]*models.Factory, error) {
	query := `SELECT ` + factoryColumns + ` FROM factories WHERE 1=1`
	args := []interface{}{}

	if filter.NameContains != nil {
		query += ` AND ` + r.db.Lower("factory_name") + ` LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(*filter.NameContains))+"%")
	}

	if filter.Risk != nil {
		query += ` AND temperature_risk = ?`
		args = append(args, string(*filter.Risk))
	}

	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	factories := []*models.Factory{}
	if err := r.db.SelectContext(ctx, "list_factories", &factories, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list factories: %w", err)
	}

	return factories, nil
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListFactoryLocations retrieves the id and coordinates of every factory
func (r *factoryRepository) ListFactoryLocations(ctx context.Context) ([]models.FactoryLocation, error) {
	query := `SELECT id, latitude, longitude FROM factories ORDER BY id`

	locations := []models.FactoryLocation{}
	if err := r.db.SelectContext(ctx, "list_factory_locations", &locations, query); err != nil {
		return nil, fmt.Errorf("failed to list factory locations: %w", err)
	}

	return locations, nil
}

// CreateFactory inserts a factory and sets its ID
func (r *factoryRepository) CreateFactory(ctx context.Context, factory *models.Factory) error {
	id, err := r.db.InsertReturningID(ctx, "insert_factory", insertFactoryQuery+` RETURNING id`,
		factory.FactoryName,
		factory.Address,
		factory.Country,
		factory.Latitude,
		factory.Longitude,
		factory.YearlyRevenue,
		string(factory.TemperatureRisk),
		factory.TemperatureRiskUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create factory: %w", err)
	}

	factory.ID = id

	r.logger.Debug(ctx, "[REPO_CREATE_FACTORY] Factory created", logging.Fields{
		"factory_id":       id,
		"factory_name":     factory.FactoryName,
		"temperature_risk": factory.TemperatureRisk,
	})

	return nil
}

// CreateFactoriesBatch inserts multiple factories in a single transaction
func (r *factoryRepository) CreateFactoriesBatch(ctx context.Context, factories []*models.Factory) error {
	if len(factories) == 0 {
		return nil
	}

	timer := r.metrics.NewTimer(r.metrics.DBQueryDuration.WithLabelValues("create_factories_batch"))
	defer func() {
		duration := timer.ObserveDuration()
		r.metrics.ImportBatchSize.Observe(float64(len(factories)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(factories),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(insertFactoryQuery))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range factories {
		_, err := stmt.ExecContext(ctx,
			f.FactoryName,
			f.Address,
			f.Country,
			f.Latitude,
			f.Longitude,
			f.YearlyRevenue,
			string(f.TemperatureRisk),
			f.TemperatureRiskUpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert factory %q: %w", f.FactoryName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.ImportRecordsTotal.Add(float64(len(factories)))

	return nil
}

// UpdateTemperatureRisk overwrites the cached risk of one factory
func (r *factoryRepository) UpdateTemperatureRisk(ctx context.Context, id int64, risk models.TemperatureRisk, computedAt time.Time) error {
	query := `
		UPDATE factories
		SET temperature_risk = ?, temperature_risk_updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, "update_temperature_risk", query, string(risk), computedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update temperature risk: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &NotFoundError{Resource: "factory", ID: strconv.FormatInt(id, 10)}
	}

	return nil
}

// EnsureSchema creates the factories table and adds missing columns
func (r *factoryRepository) EnsureSchema(ctx context.Context) error {
	if err := r.db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// HealthCheck performs a repository health check
func (r *factoryRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
