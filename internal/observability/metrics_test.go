package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	m := NewMetrics("observability_test")
	m.RecordOutcome("GO", "", false)
	m.RecordClose("DECREASE_TOLERANCE", -1.1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "observability_test_admission_candidates_evaluated_total 1")
	require.Contains(t, body, `observability_test_positions_closed_total{reason="DECREASE_TOLERANCE"} 1`)
}

func TestRecordOutcome_ReplayedCountsOnlyAsReplay(t *testing.T) {
	m := NewMetrics("observability_replay_test")

	m.RecordOutcome("GO", "", true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.CandidatesEvaluated))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CandidatesReplayed))
	require.Equal(t, 0.0, testutil.ToFloat64(m.CandidatesAdmitted))
}
