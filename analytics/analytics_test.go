package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalytics(t *testing.T, body string) *Client {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/analytics", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xdead", req.Variables["delegator"])
		_, _ = w.Write([]byte(body))
	}).Methods(http.MethodPost)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL + "/analytics")
	c.Client.MaxRetries = 0
	return c
}

func TestDelegatorStats(t *testing.T) {
	c := newAnalytics(t, `{"data":{"delegator":{
		"id":"0xdead",
		"totalStakedTokens":"3e+21",
		"totalUnrealizedRewards":"5000000000000000000",
		"totalUnstakedTokens":"0",
		"stakes":[
			{"id":"a","indexer":{"id":"0xAA"},"stakedTokens":"1e+21","lockedTokens":"0","unrealizedRewards":"2000000000000000000"},
			{"id":"b","indexer":{"id":"0xaa"},"stakedTokens":"1000000000000000000000","lockedTokens":"0","unrealizedRewards":"1000000000000000000"},
			{"id":"c","indexer":{"id":"0xbb"},"stakedTokens":"1e+21","lockedTokens":"5e+20","unrealizedRewards":"2000000000000000000"}
		]}}}`)

	stats, err := c.DelegatorStats(context.Background(), "0xDEAD")
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Len(t, stats.Stakes, 3)

	staked := stats.StakeByIndexer()
	require.Equal(t, "2000000000000000000000", staked["0xaa"].String())
	require.Equal(t, "1000000000000000000000", staked["0xbb"].String())

	unrealized := stats.UnrealizedByIndexer()
	require.Equal(t, "3000000000000000000", unrealized["0xaa"].String())
	require.NotContains(t, unrealized, "0xbb")
}

func TestDelegatorStatsUnknown(t *testing.T) {
	c := newAnalytics(t, `{"data":{"delegator":null}}`)

	stats, err := c.DelegatorStats(context.Background(), "0xdead")
	require.NoError(t, err)
	require.Nil(t, stats)
}
