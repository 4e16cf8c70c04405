package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/clients"
	"github.com/ericlarwa/gridline/internal/dispatch"
	"github.com/ericlarwa/gridline/internal/metrics"
	"github.com/ericlarwa/gridline/internal/streaming"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	engine, err := streaming.Open(t.TempDir(), streaming.Limits{
		SegmentSizeBytes: 1 << 20, IndexStride: 4096, MaxPartitionBytes: 1 << 30,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	users, err := auth.Open(t.TempDir(), auth.BootstrapConfig{RootUsername: "root", RootPassword: "secret"}, zap.NewNop())
	require.NoError(t, err)
	perm := auth.NewPermissioner(users, true)
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	cm := clients.NewManager()
	d := dispatch.New(engine, users, perm, tokens, cm, metrics.New(), zap.NewNop())

	srv := NewServer(d, cm, tokens, true, zap.NewNop())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestPingReturnsOK(t *testing.T) {
	ts := newTestAPI(t)
	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndListStreams(t *testing.T) {
	ts := newTestAPI(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/streams", map[string]any{"id": 1, "name": "orders"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/streams", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	streams, ok := body.([]any)
	require.True(t, ok)
	require.Len(t, streams, 1)
}

func TestGetUnknownStreamReturnsNotFound(t *testing.T) {
	ts := newTestAPI(t)
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/streams/999", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateTopicAndSendPollMessage(t *testing.T) {
	ts := newTestAPI(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/streams", map[string]any{"id": 1, "name": "orders"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/streams/1/topics", map[string]any{
		"id": 1, "name": "events", "partitions_count": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/streams/1/topics/1/messages", map[string]any{
		"partitioning": map[string]any{"kind": 1},
		"messages":     []map[string]any{{"payload": []byte("hello")}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/streams/1/topics/1/messages?partition_id=1&count=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBadJSONBodyReturnsBadRequest(t *testing.T) {
	ts := newTestAPI(t)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/streams", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
