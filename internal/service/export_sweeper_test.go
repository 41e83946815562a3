package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titulapp/thesis-api/config"
)

func sweeperConfig() config.ExportConfig {
	return config.ExportConfig{
		Retention:     time.Hour,
		SweepInterval: 30 * time.Minute,
	}
}

func TestNewExportSweeperService_Validation(t *testing.T) {
	registry := NewExportRegistry()

	_, err := NewExportSweeperService(ExportSweeperServiceOptions{Config: sweeperConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ExportRegistry is required")

	_, err = NewExportSweeperService(ExportSweeperServiceOptions{
		Registry: registry,
		Config:   config.ExportConfig{Retention: time.Hour},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SweepInterval must be positive")

	_, err = NewExportSweeperService(ExportSweeperServiceOptions{
		Registry: registry,
		Config:   config.ExportConfig{SweepInterval: time.Minute},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Retention must be positive")

	svc, err := NewExportSweeperService(ExportSweeperServiceOptions{
		Registry: registry,
		Config:   sweeperConfig(),
	})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	assert.Panics(t, func() {
		MustNewExportSweeperService(ExportSweeperServiceOptions{})
	})
}

func TestExportSweeperService_SweepOnce(t *testing.T) {
	registry := NewExportRegistry()
	svc := MustNewExportSweeperService(ExportSweeperServiceOptions{
		Registry: registry,
		Config:   sweeperConfig(),
	})

	for _, id := range []string{"stale-1", "stale-2", "fresh"} {
		_, err := registry.Create(id)
		require.NoError(t, err)
	}
	require.True(t, registry.Age("stale-1", 2*time.Hour))
	require.True(t, registry.Age("stale-2", 90*time.Minute))

	svc.sweepOnce(context.Background())

	assert.Equal(t, 1, registry.Len())
	assert.True(t, registry.Contains("fresh"))
}

func TestExportSweeperService_Run_StopsOnCancel(t *testing.T) {
	registry := NewExportRegistry()
	svc := MustNewExportSweeperService(ExportSweeperServiceOptions{
		Registry: registry,
		Config: config.ExportConfig{
			Retention:     time.Hour,
			SweepInterval: 10 * time.Millisecond,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx)
	}()

	// Let at least one tick fire before cancelling
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "graceful shutdown returns nil")
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestExportSweeperService_Run_RemovesStaleJobs(t *testing.T) {
	registry := NewExportRegistry()
	svc := MustNewExportSweeperService(ExportSweeperServiceOptions{
		Registry: registry,
		Config: config.ExportConfig{
			Retention:     time.Hour,
			SweepInterval: 10 * time.Millisecond,
		},
	})

	_, err := registry.Create("stale")
	require.NoError(t, err)
	require.True(t, registry.Age("stale", 2*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = svc.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return !registry.Contains("stale")
	}, time.Second, 5*time.Millisecond)
}
