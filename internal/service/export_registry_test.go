package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titulapp/thesis-api/internal/domain/model"
)

func TestExportRegistry_Create(t *testing.T) {
	r := NewExportRegistry()

	job, err := r.Create("job-1")
	require.NoError(t, err)
	assert.Equal(t, model.ExportStatusPending, job.Status)
	assert.True(t, r.Contains("job-1"))
	assert.Equal(t, 1, r.Len())

	_, err = r.Create("job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestExportRegistry_Update_ReturnsFalseAfterSweep(t *testing.T) {
	r := NewExportRegistry()
	_, err := r.Create("job-1")
	require.NoError(t, err)

	ok := r.Update("job-1", func(j *model.ExportJob) { j.Total = 3 })
	assert.True(t, ok)

	require.True(t, r.Age("job-1", 2*time.Hour))
	assert.Equal(t, 1, r.Sweep(time.Hour))

	ok = r.Update("job-1", func(j *model.ExportJob) { j.Current++ })
	assert.False(t, ok, "runner must observe its own eviction")
}

func TestExportRegistry_Transition(t *testing.T) {
	r := NewExportRegistry()
	_, err := r.Create("job-1")
	require.NoError(t, err)

	assert.True(t, r.Transition("job-1", model.ExportStatusProcessing))
	assert.True(t, r.Transition("job-1", model.ExportStatusGenerating))
	assert.False(t, r.Transition("job-1", model.ExportStatusProcessing), "no backward moves")
	assert.True(t, r.Transition("job-1", model.ExportStatusCompleted))
	assert.False(t, r.Transition("job-1", model.ExportStatusError), "terminal states are final")

	assert.False(t, r.Transition("missing", model.ExportStatusProcessing))
}

func TestExportRegistry_Complete(t *testing.T) {
	r := NewExportRegistry()
	_, err := r.Create("job-1")
	require.NoError(t, err)

	require.True(t, r.Transition("job-1", model.ExportStatusProcessing))
	require.True(t, r.Update("job-1", func(j *model.ExportJob) {
		j.Total = 5
		j.Current = 4
	}))
	require.True(t, r.Transition("job-1", model.ExportStatusGenerating))

	archive := []byte("PK\x03\x04zipbytes")
	require.True(t, r.Complete("job-1", archive))

	buf, status, progress, ok := r.Result("job-1")
	require.True(t, ok)
	assert.Equal(t, model.ExportStatusCompleted, status)
	assert.Equal(t, archive, buf)
	assert.Equal(t, 100, progress, "completion forces current to total")

	// The buffer is set exactly once
	assert.False(t, r.Complete("job-1", []byte("other")))
}

func TestExportRegistry_Complete_RequiresGenerating(t *testing.T) {
	r := NewExportRegistry()
	_, err := r.Create("job-1")
	require.NoError(t, err)

	assert.False(t, r.Complete("job-1", []byte("zip")), "pending jobs cannot complete directly")
}

func TestExportRegistry_Fail(t *testing.T) {
	r := NewExportRegistry()
	_, err := r.Create("job-1")
	require.NoError(t, err)

	require.True(t, r.Transition("job-1", model.ExportStatusProcessing))
	require.True(t, r.Update("job-1", func(j *model.ExportJob) { j.CurrentRecordName = "Thesis One" }))

	assert.True(t, r.Fail("job-1", "no eligible records"))

	snap, ok := r.Snapshot("job-1", "")
	require.True(t, ok)
	assert.Equal(t, model.ExportStatusError, snap.Status)
	assert.Equal(t, "no eligible records", snap.ErrorMessage)
	assert.Empty(t, snap.CurrentRecordName, "failure clears the in-flight record name")

	// Terminal jobs are left untouched
	assert.False(t, r.Fail("job-1", "again"))
	assert.False(t, r.Fail("missing", "nope"))
}

func TestExportRegistry_Result_Idempotent(t *testing.T) {
	r := NewExportRegistry()
	_, err := r.Create("job-1")
	require.NoError(t, err)
	require.True(t, r.Transition("job-1", model.ExportStatusProcessing))
	require.True(t, r.Transition("job-1", model.ExportStatusGenerating))
	require.True(t, r.Complete("job-1", []byte("zipbytes")))

	first, _, _, ok := r.Result("job-1")
	require.True(t, ok)
	second, _, _, ok := r.Result("job-1")
	require.True(t, ok)
	assert.Equal(t, first, second, "reads never consume the buffer")
}

func TestExportRegistry_Sweep(t *testing.T) {
	r := NewExportRegistry()
	for _, id := range []string{"old-completed", "old-running", "fresh"} {
		_, err := r.Create(id)
		require.NoError(t, err)
	}
	require.True(t, r.Transition("old-completed", model.ExportStatusProcessing))
	require.True(t, r.Transition("old-completed", model.ExportStatusGenerating))
	require.True(t, r.Complete("old-completed", []byte("zip")))
	require.True(t, r.Transition("old-running", model.ExportStatusProcessing))

	require.True(t, r.Age("old-completed", 2*time.Hour))
	require.True(t, r.Age("old-running", 2*time.Hour))

	// Age alone decides; a still-running job is swept like any other
	removed := r.Sweep(time.Hour)
	assert.Equal(t, 2, removed)
	assert.False(t, r.Contains("old-completed"))
	assert.False(t, r.Contains("old-running"))
	assert.True(t, r.Contains("fresh"))

	assert.Zero(t, r.Sweep(time.Hour), "second pass removes nothing")
}

func TestExportRegistry_Snapshot_Missing(t *testing.T) {
	r := NewExportRegistry()
	_, ok := r.Snapshot("missing", "")
	assert.False(t, ok)

	_, _, _, ok = r.Result("missing")
	assert.False(t, ok)
}
