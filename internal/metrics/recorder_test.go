package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/jarfetch/internal/domain/entities"
)

func size(n int64) *int64 { return &n }

func TestPrometheusRecorder_RecordArtifact(t *testing.T) {
	recorder := NewPrometheusRecorder("run-1")

	recorder.RecordArtifact(entities.ProvisioningResult{Outcome: entities.OutcomeDownloaded, SizeBytes: size(100), Duration: time.Second})
	recorder.RecordArtifact(entities.ProvisioningResult{Outcome: entities.OutcomeDownloaded, SizeBytes: size(50), Duration: time.Second})
	recorder.RecordArtifact(entities.ProvisioningResult{Outcome: entities.OutcomeAlreadyPresent, SizeBytes: size(999)})
	recorder.RecordArtifact(entities.ProvisioningResult{Outcome: entities.OutcomeFailed})

	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.artifactsTotal.WithLabelValues(entities.OutcomeDownloaded.String())))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.artifactsTotal.WithLabelValues(entities.OutcomeAlreadyPresent.String())))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.artifactsTotal.WithLabelValues(entities.OutcomeFailed.String())))
	assert.Equal(t, float64(150), testutil.ToFloat64(recorder.bytesTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(recorder.downloadDuration))
}

func TestPrometheusRecorder_RecordMirror(t *testing.T) {
	recorder := NewPrometheusRecorder("run-1")

	recorder.RecordMirror(true, nil)
	recorder.RecordMirror(false, nil)
	recorder.RecordMirror(false, nil)
	recorder.RecordMirror(false, errors.New("denied"))

	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.mirrorTotal.WithLabelValues("uploaded")))
	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.mirrorTotal.WithLabelValues("skipped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.mirrorTotal.WithLabelValues("error")))
}

func TestPrometheusRecorder_RecordRun(t *testing.T) {
	recorder := NewPrometheusRecorder("run-1")

	recorder.RecordRun(&entities.Report{PresentOnDisk: 6, Consistent: true}, 3*time.Second)
	assert.Equal(t, float64(6), testutil.ToFloat64(recorder.presentOnDisk))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.consistent))
	assert.Equal(t, float64(3), testutil.ToFloat64(recorder.runDuration))

	recorder.RecordRun(&entities.Report{PresentOnDisk: 4}, time.Second)
	assert.Equal(t, float64(0), testutil.ToFloat64(recorder.consistent))
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	recorder := NewPrometheusRecorder("run-7")
	recorder.RecordArtifact(entities.ProvisioningResult{Outcome: entities.OutcomeDownloaded, SizeBytes: size(10)})

	path := filepath.Join(t.TempDir(), "jarfetch.prom")
	require.NoError(t, recorder.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "jarfetch_downloaded_bytes_total")
	assert.Contains(t, text, `run_id="run-7"`)

	expected := `
# HELP jarfetch_downloaded_bytes_total Bytes written by successful downloads
# TYPE jarfetch_downloaded_bytes_total counter
jarfetch_downloaded_bytes_total{run_id="run-7"} 10
`
	require.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "jarfetch_downloaded_bytes_total"))
}

func TestPrometheusRecorder_WriteTextfileError(t *testing.T) {
	recorder := NewPrometheusRecorder("run")
	err := recorder.WriteTextfile(filepath.Join(t.TempDir(), "missing", "jarfetch.prom"))
	assert.Error(t, err)
}

func TestNoOpRecorder(t *testing.T) {
	var recorder Recorder = NoOpRecorder{}
	recorder.RecordArtifact(entities.ProvisioningResult{})
	recorder.RecordMirror(true, nil)
	recorder.RecordRun(&entities.Report{}, 0)
}
