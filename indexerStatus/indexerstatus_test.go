package indexerstatus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

const statusesBody = `{"data":{"indexingStatuses":[
	{"subgraph":"QmSynced","synced":true,"health":"healthy","fatalError":null,
	 "chains":[{"network":"mainnet","latestBlock":{"number":"1000"},"chainHeadBlock":{"number":"1050"}}]},
	{"subgraph":"QmAhead","synced":false,"health":"healthy",
	 "chains":[{"network":"arbitrum-one","latestBlock":{"number":"20"},"chainHeadBlock":{"number":"10"}}]},
	{"subgraph":"QmFailed","synced":false,"health":"failed","fatalError":{"message":"deterministic error"},
	 "chains":[{"network":"gnosis","latestBlock":null,"chainHeadBlock":{"number":"77"}}]},
	{"subgraph":"QmNoChain","synced":false,"health":"unhealthy","chains":[]},
	{"subgraph":"","synced":true}
]}}`

func newIndexer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/status", handler).Methods(http.MethodPost)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(statusesBody))
}

func TestStatusURL(t *testing.T) {
	require.Equal(t, "https://indexer.example/status", StatusURL("indexer.example"))
	require.Equal(t, "http://indexer.example/status", StatusURL("http://indexer.example//"))
	require.Equal(t, "https://indexer.example/path/status", StatusURL(" https://indexer.example/path/ "))
}

func TestDeploymentStatuses(t *testing.T) {
	srv := newIndexer(t, okHandler)

	statuses, err := NewClient(time.Second).DeploymentStatuses(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	synced := statuses["QmSynced"]
	require.True(t, synced.Synced)
	require.Equal(t, "mainnet", synced.Network)
	require.EqualValues(t, 1000, synced.LatestBlock)
	require.EqualValues(t, 1050, synced.ChainHeadBlock)
	require.EqualValues(t, 50, synced.BlocksBehind)

	require.Zero(t, statuses["QmAhead"].BlocksBehind)

	failed := statuses["QmFailed"]
	require.True(t, failed.Failed())
	require.Equal(t, "deterministic error", failed.FatalError)
	require.Zero(t, failed.LatestBlock)
	require.EqualValues(t, 77, failed.BlocksBehind)

	noChain := statuses["QmNoChain"]
	require.Empty(t, noChain.Network)
	require.Zero(t, noChain.BlocksBehind)
}

func TestDeploymentStatusesErrors(t *testing.T) {
	c := NewClient(time.Second)

	_, err := c.DeploymentStatuses(context.Background(), "")
	require.ErrorIs(t, err, ErrNoEndpoint)
	require.Equal(t, "No indexer URL configured", err.Error())

	notFound := httptest.NewServer(mux.NewRouter())
	t.Cleanup(notFound.Close)
	_, err = c.DeploymentStatuses(context.Background(), notFound.URL)
	require.EqualError(t, err, "Endpoint not found (404) - /status may not be exposed")

	forbidden := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err = c.DeploymentStatuses(context.Background(), forbidden.URL)
	require.EqualError(t, err, "Access denied (403) - endpoint may require authentication")

	broken := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err = c.DeploymentStatuses(context.Background(), broken.URL)
	require.EqualError(t, err, "HTTP error 500")

	gqlErr := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"unknown field"}]}`))
	})
	_, err = c.DeploymentStatuses(context.Background(), gqlErr.URL)
	require.EqualError(t, err, "GraphQL error: unknown field")

	closed := httptest.NewServer(mux.NewRouter())
	closed.Close()
	_, err = c.DeploymentStatuses(context.Background(), closed.URL)
	require.EqualError(t, err, "Connection failed - endpoint may be blocked or not exposed")
}

func TestDeploymentStatusesTimeout(t *testing.T) {
	slow := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := NewClient(50*time.Millisecond).DeploymentStatuses(context.Background(), slow.URL)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "Timeout ("), err.Error())
	require.Equal(t, "timeout", ShortError(err.Error()))
}

func TestShortError(t *testing.T) {
	cases := map[string]string{
		"Timeout (10s) - endpoint may be slow or unreachable":        "timeout",
		"request timed out":                                          "timeout",
		"Endpoint not found (404) - /status may not be exposed":      "no endpoint",
		"Access denied (403) - endpoint may require authentication": "forbidden",
		"Connection failed - endpoint may be blocked or not exposed": "unreachable",
		"SSL handshake":                                               "SSL error",
		"GraphQL error: something":                                    "GraphQL erro...",
		"HTTP error 502":                                              "HTTP error 502",
	}
	for in, want := range cases {
		require.Equal(t, want, ShortError(in), in)
	}
}

func TestFetchAll(t *testing.T) {
	good := newIndexer(t, okHandler)
	forbidden := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	empty := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"indexingStatuses":[]}}`))
	})
	slow := newIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	urls := map[string]string{
		"0xgood":   good.URL,
		"0xdenied": forbidden.URL,
		"0xempty":  empty.URL,
		"0xslow":   slow.URL,
		"0xnourl":  "",
	}
	statuses, errs := FetchAll(context.Background(), urls, "QmSynced", Options{
		Workers:  2,
		Timeout:  3 * time.Second,
		Deadline: 500 * time.Millisecond,
	})

	require.Len(t, statuses, 1)
	require.True(t, statuses["0xgood"].Synced)
	require.Equal(t, map[string]string{"0xdenied": "forbidden", "0xslow": "timeout"}, errs)
}
