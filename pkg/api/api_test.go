package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/engine"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/metrics"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/storage"
)

func newServer(t *testing.T, withStore bool) *httptest.Server {
	t.Helper()
	reg, err := registry.New([]registry.Spec{
		{Name: "users", Family: sketches.Theta, ValueType: sketches.StringValue, K: 12},
		{Name: "more", Family: sketches.Theta, ValueType: sketches.StringValue, K: 12},
		{Name: "cpc", Family: sketches.CPC, ValueType: sketches.StringValue, K: 10},
		{Name: "latency", Family: sketches.KLL, K: 200},
		{Name: "items", Family: sketches.Frequency, K: 8},
	})
	require.NoError(t, err)
	promReg := prometheus.NewRegistry()
	eng := engine.New(reg, engine.WithMetrics(metrics.New(promReg)))

	opts := []Option{WithGatherer(promReg)}
	if withStore {
		st, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "snap.sqlite"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		opts = append(opts, WithStore(st))
	}
	r := mux.NewRouter()
	RegisterRoutes(r, eng, opts...)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func get(t *testing.T, srv *httptest.Server, path, query string) (int, string) {
	t.Helper()
	u := srv.URL + path
	if query != "" {
		u += "?" + url.QueryEscape(query)
	}
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestHealthAndStatus(t *testing.T) {
	srv := newServer(t, false)
	code, body := get(t, srv, "/health", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"status":"ok"}`, body)

	code, body = get(t, srv, "/status", "")
	require.Equal(t, http.StatusOK, code)
	st := decode(t, body)
	require.EqualValues(t, 5, st["count"])
	first := st["sketches"].([]any)[0].(map[string]any)
	require.Equal(t, "cpc", first["name"])
	require.Equal(t, "cpc", first["family"])
	require.Equal(t, "string", first["type"])
}

func TestUpdateAndQuery(t *testing.T) {
	srv := newServer(t, false)
	code, body := post(t, srv, "/update", `{"users": ["a", "b", "c", "a"], "latency": [1, 2, 3, 4], "items": [{"item": "x", "weight": 3}, "y"]}`)
	require.Equal(t, http.StatusOK, code, body)
	require.Empty(t, body)

	code, body = post(t, srv, "/query", `{"name": "users"}`)
	require.Equal(t, http.StatusOK, code, body)
	require.EqualValues(t, 3, decode(t, body)["estimate"])

	code, body = get(t, srv, "/query", `{"name": "latency", "fractions": [0, 1], "values": [2.5], "resultType": "pmf"}`)
	require.Equal(t, http.StatusOK, code, body)
	q := decode(t, body)
	require.EqualValues(t, 4, q["streamLength"])
	require.Len(t, q["estimatedPMF"], 2)
	require.Len(t, q["estimatedQuantiles"], 2)

	code, body = post(t, srv, "/query", `{"name": "items", "errorType": "noFalseNegatives"}`)
	require.Equal(t, http.StatusOK, code, body)
	rows := decode(t, body)["items"].([]any)
	require.Len(t, rows, 2)
	require.Equal(t, "x", rows[0].(map[string]any)["item"])
}

func TestBatchRequests(t *testing.T) {
	srv := newServer(t, false)
	code, body := post(t, srv, "/update", `[{"users": "a"}, {"more": ["b", "c"]}]`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = post(t, srv, "/query", `[{"name": "users"}, {"name": "more"}]`)
	require.Equal(t, http.StatusOK, code, body)
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &results))
	require.Len(t, results, 2)
	require.EqualValues(t, 1, results[0]["estimate"])
	require.EqualValues(t, 2, results[1]["estimate"])

	code, body = post(t, srv, "/reset", `[{"name": "users"}, {"name": "more"}]`)
	require.Equal(t, http.StatusOK, code, body)
	require.Empty(t, body)
}

func TestErrorMapping(t *testing.T) {
	srv := newServer(t, false)
	for _, tc := range []struct {
		path, body string
		want       int
	}{
		{"/query", `{"name": "nope"}`, http.StatusNotFound},
		{"/query", `{"name": "users", "fractions": [0.5]}`, http.StatusUnprocessableEntity},
		{"/query", `{"name": "items", "errorType": "sometimes"}`, http.StatusUnprocessableEntity},
		{"/query", `{"name": }`, http.StatusBadRequest},
		{"/query", ``, http.StatusBadRequest},
		{"/reset", `{}`, http.StatusUnprocessableEntity},
		{"/update", `{"items": [{"item": "x"}]}`, http.StatusUnprocessableEntity},
		{"/merge", `{"source": []}`, http.StatusUnprocessableEntity},
		{"/merge", `{"target": "users", "source": ["cpc"]}`, http.StatusUnprocessableEntity},
		{"/merge", `{"k": 12, "source": [{"family": "bloom", "data": ""}]}`, http.StatusUnprocessableEntity},
		{"/merge", `{"k": 12, "source": [{"family": "theta", "data": "***"}]}`, http.StatusUnprocessableEntity},
	} {
		code, body := post(t, srv, tc.path, tc.body)
		require.Equal(t, tc.want, code, "%s %s: %s", tc.path, tc.body, body)
		require.NotEmpty(t, decode(t, body)["error"])
	}
}

func TestSerializeAndMergeInline(t *testing.T) {
	srv := newServer(t, false)
	_, _ = post(t, srv, "/update", `{"users": ["a", "b"], "more": ["b", "c"]}`)

	code, body := post(t, srv, "/serialize", `{"name": "more"}`)
	require.Equal(t, http.StatusOK, code, body)
	img := decode(t, body)
	require.Equal(t, "theta", img["family"])
	require.Equal(t, "string", img["type"])
	require.Equal(t, "base64", img["encoding"])

	data, err := base64.StdEncoding.DecodeString(img["sketch"].(string))
	require.NoError(t, err)
	urlSafe := base64.RawURLEncoding.EncodeToString(data)

	req, err := json.Marshal(map[string]any{
		"k":      12,
		"source": []any{"users", map[string]any{"family": "theta", "data": urlSafe}},
	})
	require.NoError(t, err)
	code, body = post(t, srv, "/merge", string(req))
	require.Equal(t, http.StatusOK, code, body)
	merged := decode(t, body)
	require.Equal(t, "theta", merged["family"])

	raw, err := base64.StdEncoding.DecodeString(merged["sketch"].(string))
	require.NoError(t, err)
	sk, err := sketches.Decode(sketches.Theta, raw)
	require.NoError(t, err)
	res, err := sk.Query(sketches.Query{})
	require.NoError(t, err)
	require.Equal(t, 3.0, res.(*sketches.DistinctResult).Estimate)

	code, body = post(t, srv, "/merge", `{"target": "users", "source": ["more"]}`)
	require.Equal(t, http.StatusOK, code, body)
	require.Empty(t, body)
	_, body = post(t, srv, "/query", `{"name": "users"}`)
	require.EqualValues(t, 3, decode(t, body)["estimate"])
}

func TestSnapshots(t *testing.T) {
	code, _ := post(t, newServer(t, false), "/snapshot", `{"name": "users"}`)
	require.Equal(t, http.StatusNotFound, code)

	srv := newServer(t, true)
	_, _ = post(t, srv, "/update", `{"items": ["a", "a", "b"]}`)
	code, body := post(t, srv, "/snapshot", `{"name": "items"}`)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, "items", decode(t, body)["name"])

	code, body = get(t, srv, "/snapshots", "")
	require.Equal(t, http.StatusOK, code, body)
	require.EqualValues(t, 1, decode(t, body)["count"])

	code, body = get(t, srv, "/snapshots/items", "")
	require.Equal(t, http.StatusOK, code, body)
	snap := decode(t, body)
	require.Equal(t, "frequency", snap["family"])
	require.NotEmpty(t, snap["sketch"])

	code, _ = get(t, srv, "/snapshots/nope", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestMetricsAndRequestID(t *testing.T) {
	srv := newServer(t, false)
	_, _ = post(t, srv, "/update", `{"users": "a"}`)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `sketchd_operations_total{family="theta",op="update",outcome="ok"} 1`)
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusOf(errors.Mark(errors.New("x"), errMalformed)))
	require.Equal(t, http.StatusNotFound, statusOf(sketcherr.NotFoundf("x")))
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(sketcherr.FamilyMismatchf("x")))
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(sketcherr.Configf("x")))
	require.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}

func TestDecodeBase64Variants(t *testing.T) {
	data := []byte{0xfb, 0xff, 0x01}
	for _, enc := range encodings {
		got, err := decodeBase64(enc.EncodeToString(data))
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
}
