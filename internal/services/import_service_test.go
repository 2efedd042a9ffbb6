package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climadex/internal/models"
	"climadex/internal/repository"
	"climadex/internal/risk"
	"climadex/pkg/logging"
)

const importCSV = `factory_name,address,country,latitude,longitude,yearly_revenue
Dubai Plant,Sheikh Zayed Road,UAE,25.2,55.3,3000000
Paris Plant,"1 Rue de Rivoli, Paris",France,48.8,2.35,1500000
,No Name Street,France,48.8,2.35,1000
Zero Revenue,Somewhere,France,48.8,2.35,0
Far North,Pole Road,Norway,95,10,100
Ocean Rig,North Atlantic,None,-60,-30,500
`

func newImportService(f *fixture) *ImportService {
	return NewImportService(f.repo, risk.NewEvaluator(f.source, f.metrics), logging.NewNopLogger(), f.metrics)
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newImportService(f)

	result, err := svc.Import(ctx, strings.NewReader(importCSV), 2)
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalRecords)
	assert.Equal(t, 3, result.SuccessfulRecords)
	assert.Equal(t, 3, result.FailedRecords)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "line 4")
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.ImportErrorsTotal.WithLabelValues("validation_error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.ImportRecordsTotal))
	assert.Equal(t, uint64(1), sampleCount(t, f.metrics.ImportDuration))
	assert.Equal(t, uint64(2), sampleCount(t, f.metrics.ImportBatchSize))

	factories, err := f.repo.ListFactories(ctx, repository.FactoryFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, factories, 3)

	assert.Equal(t, "Dubai Plant", factories[0].FactoryName)
	assert.Equal(t, models.RiskHigh, factories[0].TemperatureRisk)
	assert.Equal(t, "1 Rue de Rivoli, Paris", factories[1].Address)
	assert.Equal(t, models.RiskLow, factories[1].TemperatureRisk)
	assert.Equal(t, models.RiskUndefined, factories[2].TemperatureRisk)
	require.NotNil(t, factories[2].TemperatureRiskUpdatedAt)
	assert.True(t, f.clock.Now().Equal(*factories[2].TemperatureRiskUpdatedAt))
}

func TestImport_ColumnOrderIndependent(t *testing.T) {
	f := newFixture(t)
	svc := newImportService(f)

	data := "yearly_revenue,latitude,longitude,country,address,factory_name\n10,25.2,55.3,UAE,Road,Plant\n"
	result, err := svc.Import(context.Background(), strings.NewReader(data), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessfulRecords)
}

func TestImport_EvaluationErrorSkipsRow(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("dataset offline")
	svc := newImportService(f)

	result, err := svc.Import(context.Background(), strings.NewReader(importCSV), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessfulRecords)
	assert.Equal(t, 6, result.FailedRecords)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.ImportErrorsTotal.WithLabelValues("evaluation_error")))
}

func TestImport_BadHeader(t *testing.T) {
	f := newFixture(t)
	svc := newImportService(f)

	_, err := svc.Import(context.Background(), strings.NewReader("name,address\nA,B\n"), 10)
	assert.Error(t, err)

	_, err = svc.Import(context.Background(), strings.NewReader(""), 10)
	assert.Error(t, err)
}

func TestImportFile(t *testing.T) {
	f := newFixture(t)
	svc := newImportService(f)

	path := filepath.Join(t.TempDir(), "factories.csv")
	require.NoError(t, os.WriteFile(path, []byte(importCSV), 0o600))

	result, err := svc.ImportFile(context.Background(), path, 500)
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessfulRecords)

	_, err = svc.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), 500)
	assert.Error(t, err)
}
