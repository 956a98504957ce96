//go:build integration

package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/exoplanet-go/internal/conf"
	"github.com/tphakala/exoplanet-go/internal/logger"
)

func TestMySQLStoreIntegration(t *testing.T) {
	ctx := t.Context()

	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("exoplanet"),
		tcmysql.WithUsername("exoplanet"),
		tcmysql.WithPassword("secret"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := conf.NewTestSettings().Build()
	settings.Datastore.SQLite.Enabled = false
	settings.Datastore.MySQL.Enabled = true
	settings.Datastore.MySQL.Username = "exoplanet"
	settings.Datastore.MySQL.Password = "secret"
	settings.Datastore.MySQL.Host = host
	settings.Datastore.MySQL.Port = port.Port()
	settings.Datastore.MySQL.Database = "exoplanet"

	store, err := New(settings, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	require.IsType(t, &MySQLStore{}, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	// a second migration over the same schema is a no-op
	require.NoError(t, store.(*MySQLStore).performAutoMigration("mysql"))

	_, err = store.SavePrediction(ctx, record("K00752.01", "kepler", time.Now(), 0.9, true))
	require.NoError(t, err)
	_, err = store.SavePrediction(ctx, record("1000.01", "tess", time.Now(), 0.6, false))
	require.NoError(t, err)

	stats, err := store.PredictionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalPredictions)
	assert.InDelta(t, 50.0, stats.SuccessRate, 1e-9)

	require.NoError(t, store.SaveLightcurve(ctx, &Lightcurve{
		CandidateID: "K00752.01", SecondaryKey: 752, Image: []byte{0x89, 'P', 'N', 'G'}, Filename: "lightcurve_752.png",
	}))
	lc, err := store.GetLightcurveBySecondaryKey(ctx, 752)
	require.NoError(t, err)
	assert.Equal(t, "K00752.01", lc.CandidateID)
}
