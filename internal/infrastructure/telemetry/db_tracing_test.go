package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/infrastructure/persistence/models"
	"github.com/netcollect/backend/internal/infrastructure/telemetry"
	"github.com/netcollect/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestDBTracingPlugin(t *testing.T) {
	t.Run("disabled registers nothing", func(t *testing.T) {
		db := testutil.NewSQLiteDB(t)
		p := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{Enabled: false}, zap.NewNop())
		require.NoError(t, p.Register(db))
		assert.Nil(t, db.Callback().Query().Get("otel_timing:before_query"))
	})

	t.Run("enabled records statement spans", func(t *testing.T) {
		sr, tp := newRecorder(t)
		original := otel.GetTracerProvider()
		otel.SetTracerProvider(tp)
		t.Cleanup(func() { otel.SetTracerProvider(original) })

		db := testutil.NewSQLiteDB(t)
		p := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			DBSystem:        "sqlite",
			SlowQueryThresh: time.Nanosecond,
		}, nil)
		require.NoError(t, p.Register(db))
		assert.NotNil(t, db.Callback().Query().Get("otel_timing:before_query"))

		var count int64
		require.NoError(t, db.WithContext(context.Background()).Model(&models.CustomerModel{}).Count(&count).Error)
		assert.NotEmpty(t, sr.Ended())
	})
}

func TestDBPoolMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	db := testutil.NewSQLiteDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := telemetry.NewDBPoolMetrics(mp.Meter("test"), sqlDB)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = true
		}
	}
	assert.True(t, names["db_pool_connections"])
	assert.True(t, names["db_pool_connections_max"])

	assert.NoError(t, m.Stop())
	_, err = telemetry.NewDBPoolMetrics(nil, sqlDB)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}
