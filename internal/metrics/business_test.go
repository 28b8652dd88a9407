package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMetricLine matches a Prometheus sample while tolerating the OTel scope labels
// the exporter adds.
func assertMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	assert.Regexp(t, name+`\{[^}]*`+labels+`[^}]*\} `+value, output)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusOf(nil))
	assert.Equal(t, StatusError, StatusOf(errors.New("boom")))
}

func TestBusinessMetrics_Export(t *testing.T) {
	provider, err := NewProvider("pfbackup")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "pfbackup")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "keymanager", "generate_key", StatusSuccess)
	bm.RecordOperation(ctx, "keymanager", "generate_key", StatusSuccess)
	bm.RecordOperation(ctx, "keymanager", "retrieve_key", StatusError)
	bm.RecordOperation(ctx, "backup", "backup", StatusSuccess)
	bm.RecordDuration(ctx, "backup", "backup", 42*time.Second, StatusSuccess)
	bm.RecordDuration(ctx, "keymanager", "generate_key", 300*time.Millisecond, StatusSuccess)

	output := scrape(t, provider)

	assertMetricLine(t, output, `pfbackup_operations_total`,
		`domain="keymanager".*operation="generate_key".*status="success"`, `2`)
	assertMetricLine(t, output, `pfbackup_operations_total`,
		`domain="keymanager".*operation="retrieve_key".*status="error"`, `1`)
	assertMetricLine(t, output, `pfbackup_operations_total`,
		`domain="backup".*operation="backup".*status="success"`, `1`)
	assertMetricLine(t, output, `pfbackup_operation_duration_seconds_count`,
		`domain="backup".*operation="backup".*status="success"`, `1`)
	assertMetricLine(t, output, `pfbackup_operation_duration_seconds_bucket`,
		`domain="backup".*le="60"`, `1`)
	assertMetricLine(t, output, `pfbackup_operation_duration_seconds_bucket`,
		`domain="backup".*le="30"`, `0`)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	bm := NewNoOpBusinessMetrics()
	assert.IsType(t, &NoOpBusinessMetrics{}, bm)

	assert.NotPanics(t, func() {
		bm.RecordOperation(context.Background(), "backup", "restore", StatusError)
		bm.RecordDuration(context.Background(), "backup", "restore", time.Second, StatusError)
	})
}
