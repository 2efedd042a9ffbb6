package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climadex/internal/models"
	"climadex/pkg/database"
	"climadex/pkg/logging"
	"climadex/pkg/metrics"
)

func newTestRepository(t *testing.T) FactoryRepository {
	t.Helper()
	m := metrics.NewCollectorWithRegistry("climadex_test", prometheus.NewRegistry())
	db, err := database.Open(&database.Config{Driver: database.DriverSQLite, Path: ":memory:"}, logging.NewNopLogger(), m)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewFactoryRepository(db, logging.NewNopLogger(), m)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func newFactory(name string, risk models.TemperatureRisk) *models.Factory {
	return &models.Factory{
		FactoryName:     name,
		Address:         "1 Rue de Rivoli",
		Country:         "France",
		Latitude:        48.8711312,
		Longitude:       2.3462203,
		YearlyRevenue:   1500000,
		TemperatureRisk: risk,
	}
}

func strPtr(s string) *string { return &s }

func riskPtr(r models.TemperatureRisk) *models.TemperatureRisk { return &r }

func TestCreateAndGetFactory(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFactory("Acme Steel", models.RiskHigh)
	f.TemperatureRiskUpdatedAt = &at

	require.NoError(t, repo.CreateFactory(ctx, f))
	assert.Equal(t, int64(1), f.ID)

	got, err := repo.GetFactory(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Steel", got.FactoryName)
	assert.Equal(t, "France", got.Country)
	assert.Equal(t, 48.8711312, got.Latitude)
	assert.Equal(t, 1500000.0, got.YearlyRevenue)
	assert.Equal(t, models.RiskHigh, got.TemperatureRisk)
	require.NotNil(t, got.TemperatureRiskUpdatedAt)
	assert.True(t, at.Equal(*got.TemperatureRiskUpdatedAt))

	second := newFactory("Beta Textiles", models.RiskLow)
	require.NoError(t, repo.CreateFactory(ctx, second))
	assert.Equal(t, int64(2), second.ID)
}

func TestGetFactory_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetFactory(context.Background(), 42)
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "factory", nf.Resource)
	assert.Equal(t, "42", nf.ID)
	assert.False(t, nf.IsTransient())
}

func TestListFactories_Filters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seed := []*models.Factory{
		newFactory("Acme Steel", models.RiskHigh),
		newFactory("Beta Textiles", models.RiskLow),
		newFactory("ACME Chemicals", models.RiskLow),
		newFactory("100% Cotton", models.RiskUndefined),
		newFactory("Under_Score Works", models.RiskHigh),
	}
	for _, f := range seed {
		require.NoError(t, repo.CreateFactory(ctx, f))
	}

	names := func(fs []*models.Factory) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.FactoryName
		}
		return out
	}

	tests := []struct {
		name   string
		filter FactoryFilter
		want   []string
	}{
		{
			name:   "no filter ordered by id",
			filter: FactoryFilter{Limit: 10},
			want:   []string{"Acme Steel", "Beta Textiles", "ACME Chemicals", "100% Cotton", "Under_Score Works"},
		},
		{
			name:   "case insensitive substring",
			filter: FactoryFilter{NameContains: strPtr("acme"), Limit: 10},
			want:   []string{"Acme Steel", "ACME Chemicals"},
		},
		{
			name:   "risk only",
			filter: FactoryFilter{Risk: riskPtr(models.RiskLow), Limit: 10},
			want:   []string{"Beta Textiles", "ACME Chemicals"},
		},
		{
			name:   "query and risk combined",
			filter: FactoryFilter{NameContains: strPtr("ACME"), Risk: riskPtr(models.RiskHigh), Limit: 10},
			want:   []string{"Acme Steel"},
		},
		{
			name:   "percent matches literally",
			filter: FactoryFilter{NameContains: strPtr("%"), Limit: 10},
			want:   []string{"100% Cotton"},
		},
		{
			name:   "underscore matches literally",
			filter: FactoryFilter{NameContains: strPtr("_"), Limit: 10},
			want:   []string{"Under_Score Works"},
		},
		{
			name:   "limit and offset",
			filter: FactoryFilter{Limit: 2, Offset: 1},
			want:   []string{"Beta Textiles", "ACME Chemicals"},
		},
		{
			name:   "offset past end",
			filter: FactoryFilter{Limit: 2, Offset: 10},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListFactories(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestListFactories_AccentedNames(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, name := range []string{"ÉCOLE Usine", "Fonderie de Besançon", "Ecole Textiles"} {
		require.NoError(t, repo.CreateFactory(ctx, newFactory(name, models.RiskLow)))
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"ÉCOLE", []string{"ÉCOLE Usine"}},
		{"École", []string{"ÉCOLE Usine"}},
		{"école usine", []string{"ÉCOLE Usine"}},
		{"BESANÇON", []string{"Fonderie de Besançon"}},
		{"ecole", []string{"Ecole Textiles"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := repo.ListFactories(ctx, FactoryFilter{NameContains: strPtr(tt.query), Limit: 10})
			require.NoError(t, err)

			names := make([]string, len(got))
			for i, f := range got {
				names[i] = f.FactoryName
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_a\\b`, escapeLike(`100% _a\b`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestCreateFactoriesBatch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateFactoriesBatch(ctx, nil))

	batch := []*models.Factory{
		newFactory("One", models.RiskLow),
		newFactory("Two", models.RiskHigh),
		newFactory("Three", models.RiskUndefined),
	}
	require.NoError(t, repo.CreateFactoriesBatch(ctx, batch))

	got, err := repo.ListFactories(ctx, FactoryFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Three", got[2].FactoryName)
	assert.Equal(t, models.RiskUndefined, got[2].TemperatureRisk)
}

func TestListFactoryLocations(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := newFactory("A", models.RiskLow)
	b := newFactory("B", models.RiskLow)
	b.Latitude, b.Longitude = 25.2, 55.3
	require.NoError(t, repo.CreateFactory(ctx, a))
	require.NoError(t, repo.CreateFactory(ctx, b))

	locs, err := repo.ListFactoryLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.FactoryLocation{
		{ID: a.ID, Latitude: a.Latitude, Longitude: a.Longitude},
		{ID: b.ID, Latitude: 25.2, Longitude: 55.3},
	}, locs)
}

func TestUpdateTemperatureRisk(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	f := newFactory("Acme Steel", models.RiskUndefined)
	require.NoError(t, repo.CreateFactory(ctx, f))

	at := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateTemperatureRisk(ctx, f.ID, models.RiskHigh, at))

	got, err := repo.GetFactory(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, got.TemperatureRisk)
	require.NotNil(t, got.TemperatureRiskUpdatedAt)
	assert.True(t, at.Equal(*got.TemperatureRiskUpdatedAt))

	err = repo.UpdateTemperatureRisk(ctx, 999, models.RiskLow, at)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateFactory(ctx, newFactory("Acme Steel", models.RiskLow)))
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	got, err := repo.ListFactories(ctx, FactoryFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, repo.HealthCheck(ctx))
}
