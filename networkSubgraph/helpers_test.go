package networksubgraph

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

var operationName = regexp.MustCompile(`^\s*query\s+(\w+)`)

type handlerFunc func(vars map[string]any) string

// fakeSubgraph answers GraphQL requests by operation name.
type fakeSubgraph struct {
	t        *testing.T
	mu       sync.Mutex
	handlers map[string]handlerFunc
	calls    map[string]int
}

func newFakeSubgraph(t *testing.T) (*fakeSubgraph, *NetworkSubgraph) {
	t.Helper()
	f := &fakeSubgraph{t: t, handlers: map[string]handlerFunc{}, calls: map[string]int{}}

	router := mux.NewRouter()
	router.HandleFunc("/subgraph", f.serve).Methods(http.MethodPost)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	s := NewNetworkSubgraph(srv.URL + "/subgraph")
	s.Client.MaxRetries = 0
	return f, s
}

func (f *fakeSubgraph) on(op string, h handlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[op] = h
}

func (f *fakeSubgraph) reply(op, body string) {
	f.on(op, func(map[string]any) string { return body })
}

func (f *fakeSubgraph) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSubgraph) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req)) {
		return
	}

	op := ""
	if m := operationName.FindStringSubmatch(req.Query); m != nil {
		op = m[1]
	} else if strings.Contains(req.Query, "__type") {
		op = "IsNetworkSubgraph"
	} else if strings.Contains(req.Query, "graphNetwork") {
		op = "NetworkStats"
	}

	f.mu.Lock()
	f.calls[op]++
	h, ok := f.handlers[op]
	f.mu.Unlock()

	if !ok {
		assert.Failf(f.t, "unexpected query", "operation %q", op)
		_, _ = w.Write([]byte(`{"errors":[{"message":"unexpected"}]}`))
		return
	}
	_, _ = w.Write([]byte(h(req.Variables)))
}
