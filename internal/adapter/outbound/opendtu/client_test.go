package opendtu_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarhook/opendtu-mcp/internal/adapter/outbound/opendtu"
	"github.com/solarhook/opendtu-mcp/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *opendtu.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	creds := domain.Credentials{Host: server.URL, Username: "admin", Password: "openDTU42"}
	return opendtu.New(server.Client(), creds, logger,
		opendtu.WithRetryBackoff(10*time.Millisecond))
}

// dropConnection kills the TCP connection without writing a response, so
// the client sees a transport failure.
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(err)
	}
	conn.Close()
}

const liveDataBody = `{
	"inverters": [
		{
			"serial": "114181800001",
			"name": "Balcony East",
			"reachable": true,
			"producing": true,
			"limit_relative": 70,
			"limit_absolute": 1050,
			"AC": {"0": {"Power": {"v": 123.4, "u": "W", "d": 1}}}
		},
		{
			"serial": "114181800002",
			"name": "Balcony West",
			"reachable": true,
			"producing": false,
			"limit_relative": 100,
			"limit_absolute": -1,
			"AC": {}
		}
	],
	"total": {
		"Power": {"v": 123.4, "u": "W", "d": 1},
		"YieldDay": {"v": 1560, "u": "Wh", "d": 0},
		"YieldTotal": {"v": 142.857, "u": "kWh", "d": 3}
	}
}`

func TestGetLiveData(t *testing.T) {
	var gotAuth atomic.Bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/livedata/status", r.URL.Path)
		if user, pass, ok := r.BasicAuth(); ok {
			gotAuth.Store(user == "admin" && pass == "openDTU42")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(liveDataBody))
	}))

	data, err := client.GetLiveData(context.Background())
	require.NoError(t, err)
	assert.True(t, gotAuth.Load(), "credentials must be attached to every request")

	require.Len(t, data.Inverters, 2)
	assert.InDelta(t, 123.4, data.TotalPowerW, 0.01)
	assert.InDelta(t, 1560, data.YieldDayWh, 0.01)
	assert.InDelta(t, 142.857, data.YieldTotalKWh, 0.001)

	first := data.Inverters[0]
	assert.Equal(t, "114181800001", first.Serial)
	assert.Equal(t, "Balcony East", first.Name)
	assert.True(t, first.Reachable)
	assert.True(t, first.Producing)
	assert.InDelta(t, 123.4, first.PowerW, 0.01)
	assert.InDelta(t, 70, first.LimitRelative, 0.01)
	assert.InDelta(t, 1050, first.LimitAbsolute, 0.01)

	// Missing power telemetry maps to power 0 and unreachable rather
	// than failing the whole call.
	second := data.Inverters[1]
	assert.Equal(t, "114181800002", second.Serial)
	assert.Zero(t, second.PowerW)
	assert.False(t, second.Reachable)
	assert.InDelta(t, -1, second.LimitAbsolute, 0.01)
}

func TestGetLiveDataRetriesOnceOnTransportFailure(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			dropConnection(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(liveDataBody))
	}))

	data, err := client.GetLiveData(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Inverters, 2)
	assert.Equal(t, int32(2), requests.Load())
}

func TestGetLiveDataSurfacesUnreachableAfterOneRetry(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		dropConnection(w)
	}))

	_, err := client.GetLiveData(context.Background())
	require.Error(t, err)
	var unreachable *domain.ApplianceUnreachableError
	assert.ErrorAs(t, err, &unreachable)
	assert.Equal(t, int32(2), requests.Load(), "at most one retry")
}

func TestGetLiveDataAuthFailureNotRetried(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.GetLiveData(context.Background())
	require.Error(t, err)
	var authErr *domain.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(1), requests.Load())
}

func TestGetLimitStatus(t *testing.T) {
	body := `{
		"114181800001": {"limit_relative": 70, "max_power": 1500, "limit_set_status": "Ok"},
		"114181800002": {"limit_relative": 100, "max_power": 800, "limit_set_status": "Pending"}
	}`
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/limit/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})

	t.Run("all inverters", func(t *testing.T) {
		client := newTestClient(t, handler)
		statuses, err := client.GetLimitStatus(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, statuses, 2)
		st := statuses["114181800001"]
		assert.Equal(t, "114181800001", st.Serial)
		assert.InDelta(t, 70, st.LimitRelative, 0.01)
		assert.InDelta(t, 1500, st.MaxPowerW, 0.01)
		assert.Equal(t, domain.LimitSetOk, st.Status)
	})

	t.Run("filtered to one serial", func(t *testing.T) {
		client := newTestClient(t, handler)
		statuses, err := client.GetLimitStatus(context.Background(), "114181800002")
		require.NoError(t, err)
		require.Len(t, statuses, 1)
		assert.Equal(t, domain.LimitSetPending, statuses["114181800002"].Status)
	})

	t.Run("unknown serial yields empty result, not an error", func(t *testing.T) {
		client := newTestClient(t, handler)
		statuses, err := client.GetLimitStatus(context.Background(), "999999999999")
		require.NoError(t, err)
		assert.Empty(t, statuses)
	})
}

func TestSetLimit(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/limit/config", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "limit write must be authenticated")
		assert.Equal(t, "admin", user)
		assert.Equal(t, "openDTU42", pass)

		require.NoError(t, r.ParseForm())
		var payload struct {
			Serial     string  `json:"serial"`
			LimitType  int     `json:"limit_type"`
			LimitValue float64 `json:"limit_value"`
		}
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("data")), &payload))
		assert.Equal(t, "114181800001", payload.Serial)
		assert.Equal(t, 1, payload.LimitType)
		assert.InDelta(t, 70, payload.LimitValue, 0.01)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"success","message":"Settings saved!","code":1001}`))
	}))

	cmd := domain.LimitCommand{Serial: "114181800001", Value: 70, Type: domain.LimitTypeRelativeNonPersistent}
	outcome, err := client.SetLimit(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "114181800001", outcome.Serial)
	assert.InDelta(t, 70, outcome.Applied, 0.01)
	assert.Equal(t, domain.LimitTypeRelativeNonPersistent, outcome.Type)
	assert.Equal(t, "Settings saved!", outcome.Message)
	assert.Equal(t, int32(1), requests.Load())
}

func TestSetLimitBodyFailureSurfacedVerbatimWithoutRetry(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// The appliance reports failure in the body even on HTTP 200.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"failure","message":"Invalid serial number!","code":1003}`))
	}))

	cmd := domain.LimitCommand{Serial: "114181800099", Value: 300, Type: domain.LimitTypeAbsoluteNonPersistent}
	_, err := client.SetLimit(context.Background(), cmd)
	require.Error(t, err)

	var rejected *domain.ApplianceRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Invalid serial number!", rejected.Message)
	assert.Equal(t, int32(1), requests.Load(), "writes are never retried")
}

func TestUnexpectedStatusBodyTruncatedOnRuneBoundary(t *testing.T) {
	// OpenDTU responses can carry German text. The leading ASCII byte
	// shifts the two-byte umlauts so the truncation limit lands inside
	// a rune.
	body := "!" + strings.Repeat("ä", 150)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(body))
	}))

	_, err := client.GetLiveData(context.Background())
	require.Error(t, err)

	var rejected *domain.ApplianceRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.True(t, utf8.ValidString(rejected.Message), "message must not end mid-rune")
	assert.LessOrEqual(t, len(rejected.Message), 200)
	assert.True(t, strings.HasPrefix(body, rejected.Message))
}

func TestSetLimitUnauthorizedNotRetried(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	cmd := domain.LimitCommand{Serial: "114181800001", Value: 50, Type: domain.LimitTypeRelativeNonPersistent}
	_, err := client.SetLimit(context.Background(), cmd)
	require.Error(t, err)

	var authErr *domain.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, int32(1), requests.Load())
}

func TestSetLimitTransportFailureNotRetried(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		dropConnection(w)
	}))

	cmd := domain.LimitCommand{Serial: "114181800001", Value: 50, Type: domain.LimitTypeAbsolutePersistent}
	_, err := client.SetLimit(context.Background(), cmd)
	require.Error(t, err)

	var unreachable *domain.ApplianceUnreachableError
	require.ErrorAs(t, err, &unreachable)
	assert.Equal(t, int32(1), requests.Load(), "a persistent write must never be retried")
}
