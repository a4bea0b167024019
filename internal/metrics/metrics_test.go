package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIdentification(t *testing.T) {
	before := testutil.ToFloat64(IdentificationsTotal.WithLabelValues(ResultUpstream))
	RecordIdentification(ResultUpstream)
	after := testutil.ToFloat64(IdentificationsTotal.WithLabelValues(ResultUpstream))
	assert.Equal(t, before+1, after)
}

func TestRecordExtraction(t *testing.T) {
	sciFound := ExtractionsTotal.WithLabelValues("scientific_name", "true")
	commonMissing := ExtractionsTotal.WithLabelValues("common_name", "false")
	beforeSci := testutil.ToFloat64(sciFound)
	beforeCommon := testutil.ToFloat64(commonMissing)

	RecordExtraction("Ficus benjamina", "")

	assert.Equal(t, beforeSci+1, testutil.ToFloat64(sciFound))
	assert.Equal(t, beforeCommon+1, testutil.ToFloat64(commonMissing))
}

func TestHandler(t *testing.T) {
	RecordIdentification(ResultSuccess)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "plantid_identifications_total"))
}
