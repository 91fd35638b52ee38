package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerationActionsCounts(t *testing.T) {
	before := testutil.ToFloat64(ModerationActions.WithLabelValues("videos", "approve"))

	ModerationActions.WithLabelValues("videos", "approve").Add(2)

	after := testutil.ToFloat64(ModerationActions.WithLabelValues("videos", "approve"))
	assert.Equal(t, before+2, after)
}

func TestHandlerExposesCounters(t *testing.T) {
	Submissions.WithLabelValues("direct").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "localtv_video_submissions_total"))
}
