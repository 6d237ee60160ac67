package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPICall(t *testing.T) {
	before := testutil.ToFloat64(APICallsTotal.WithLabelValues("fixtures", "success"))
	RecordAPICall("fixtures", "success", 0.2)
	assert.Equal(t, before+1, testutil.ToFloat64(APICallsTotal.WithLabelValues("fixtures", "success")))
}

func TestRecordEvaluation_SkipsNonFiniteError(t *testing.T) {
	RecordEvaluation("metrics_test", 0.75, 40, true)
	RecordEvaluation("metrics_test", 0, 0, false)

	assert.Equal(t, 0.75, testutil.ToFloat64(EvaluationError.WithLabelValues("metrics_test")))
	assert.Equal(t, 0.0, testutil.ToFloat64(EvaluationAccuracy.WithLabelValues("metrics_test")))
}

func TestUpdateQuotaUsed(t *testing.T) {
	UpdateQuotaUsed(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(APIQuotaUsed))
}
