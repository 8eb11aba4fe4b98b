package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarokim83/filemanager/optypes"
)

func TestMetrics_Lifecycle(t *testing.T) {
	m := New()

	m.Started(optypes.KindUpload)
	m.Started(optypes.KindUpload)
	m.Transferred(optypes.KindUpload, 10)
	m.Transferred(optypes.KindUpload, 0)
	m.Finished(optypes.KindUpload, string(optypes.PhaseDone), time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.started.WithLabelValues("upload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight.WithLabelValues("upload")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.bytes.WithLabelValues("upload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.finished.WithLabelValues("upload", "done")))
}

func TestMetrics_RenameObject(t *testing.T) {
	m := New()

	m.RenameObject(true)
	m.RenameObject(true)
	m.RenameObject(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.renamed.WithLabelValues("copied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renamed.WithLabelValues("failed")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Started(optypes.KindRename)
		m.Transferred(optypes.KindDownload, 5)
		m.RenameObject(false)
		m.Finished(optypes.KindRename, PhaseCanceled, 0)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Started(optypes.KindDownload)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `filemanager_operations_started_total{kind="download"} 1`)
}
