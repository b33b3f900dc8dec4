package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shoaibzaak/visa-docverify/internal/config"
)

func TestNewWiresLocalStackWithoutEvents(t *testing.T) {
	cfg := config.Config{
		FraudAPIURL:         "http://127.0.0.1:1",
		StorageBackend:      "localfs",
		StoragePath:         t.TempDir(),
		ValidationNoticeTTL: time.Second,
		BreakerEnabled:      true,
		BreakerFailureRatio: 0.5,
	}

	app, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, app.Events)
	assert.Empty(t, app.Registry.List())
	require.NoError(t, app.Close(context.Background()))
}

func TestNewRejectsUnknownStorageBackend(t *testing.T) {
	_, err := New(context.Background(), config.Config{StorageBackend: "ftp"}, nil)
	require.Error(t, err)
}

func TestAnalyzerResilienceIssuesOneAttempt(t *testing.T) {
	cfg := analyzerResilience(config.Config{
		BreakerEnabled:      true,
		BreakerMinRequests:  4,
		BreakerFailureRatio: 0.25,
		BreakerOpenTimeout:  time.Minute,
	})
	assert.Equal(t, 1, cfg.RetryMaxAttempts)
	assert.Equal(t, uint32(4), cfg.BreakerMinRequests)
	assert.Equal(t, 0.25, cfg.BreakerFailureRatio)
	assert.Equal(t, time.Minute, cfg.BreakerOpenTimeout)
}
