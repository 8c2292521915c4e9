// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto-uw-agent/internal/agent"
	"auto-uw-agent/internal/api"
	"auto-uw-agent/internal/common/config"
	"auto-uw-agent/internal/common/database"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/random"
	"auto-uw-agent/internal/models"
	"auto-uw-agent/internal/search"
	"auto-uw-agent/internal/store"
	"auto-uw-agent/internal/underwriting"
	"auto-uw-agent/pkg/registry"
)

// indexRecorder stands in for Elasticsearch and keeps the last document
// written per id.
type indexRecorder struct {
	mu   sync.Mutex
	docs map[string]search.Document
}

func (r *indexRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.Method == http.MethodPut && strings.Contains(req.URL.Path, "/_doc/") {
		var doc search.Document
		if err := json.NewDecoder(req.Body).Decode(&doc); err == nil {
			r.docs[doc.ID] = doc
		}
	}
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{StatusCode: http.StatusOK, Header: h, Body: io.NopCloser(strings.NewReader(`{"result":"updated"}`))}, nil
}

func (r *indexRecorder) get(id string) (search.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	return d, ok
}

type stack struct {
	server  *httptest.Server
	manager *agent.Manager
	redis   *miniredis.Miniredis
	index   *indexRecorder
}

// newStack wires the service the way main does, against miniredis and a
// recorded Elasticsearch.
func newStack(t testing.TB) *stack {
	t.Helper()
	log := logger.NewNoOpLogger()

	mr := miniredis.RunT(t)
	rdb := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := &indexRecorder{docs: map[string]search.Document{}}
	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: "http://es.local:9200"}, rec)
	require.NoError(t, err)
	indexer := search.NewIndexer(es.Client, "uw-submissions", log)

	st := store.New(store.NewRedisSlot(rdb.Client, store.DefaultKey), log, store.WithWriteHook(indexer.Hook()))
	pipeline := agent.NewPipeline(st,
		agent.DefaultAgents(config.PipelineConfig{FleetDiscountThreshold: 5}, random.New(2025), log),
		log, agent.WithSleeper(agent.NoDelay{}))
	manager := agent.NewManager(pipeline)
	svc := underwriting.NewService(st, manager, log)

	handler := api.NewHandler(svc, registry.Default(), log, api.WithReadinessCheck("redis", rdb.Ping))
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(func() {
		srv.Close()
		_ = manager.Shutdown(context.Background())
	})

	return &stack{server: srv, manager: manager, redis: mr, index: rec}
}

func (s *stack) call(t testing.TB, method, path, body string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, s.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func (s *stack) waitForRun(t testing.TB, id string) {
	t.Helper()
	select {
	case <-s.manager.Runner(id).Done():
	case <-time.After(10 * time.Second):
		t.Fatalf("pipeline for %s did not finish", id)
	}
}

func TestFullE2E(t *testing.T) {
	s := newStack(t)

	// 1. Broker submits
	var sub models.Submission
	status := s.call(t, http.MethodPost, "/submissions", `{
		"brokerName": "Johnson & Co.",
		"brokerEmail": "broker@agency.test",
		"insuredName": "Acme Logistics",
		"operationType": "Regional Delivery",
		"business": {"yearsInBusiness": 12, "territories": ["TX", "OK"]},
		"documents": [{"name": "acord-125.pdf", "type": "application/pdf", "size": 48213}]
	}`, &sub)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.StatusSubmitted, sub.Status)

	// 2. Agents run
	var run map[string]interface{}
	require.Equal(t, http.StatusAccepted, s.call(t, http.MethodPost, "/submissions/"+sub.ID+"/run", "", &run))
	s.waitForRun(t, sub.ID)

	var state agent.State
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/submissions/"+sub.ID+"/pipeline", "", &state))
	require.NotNil(t, state.Snapshot)
	assert.Empty(t, state.Error)
	assert.Equal(t, models.StatusCompleted, state.Snapshot.Status)
	assert.Equal(t, len(models.StageNames), state.Snapshot.Stages.CountDone())

	intake, ok := state.Snapshot.Stages.IntakeOutput()
	require.True(t, ok)
	assert.Equal(t, "Regional Delivery", intake.InsuredInfo.OperationType)
	rate, ok := state.Snapshot.Stages.RateOutput()
	require.True(t, ok)
	assert.Equal(t, intake.VehicleCount(), rate.VehicleCount)
	comm, ok := state.Snapshot.Stages.CommunicationOutput()
	require.True(t, ok)
	assert.Contains(t, comm.ProposalText, "Acme Logistics")

	// 3. Persisted in Redis, mirrored to the index
	raw, err := s.redis.Get(store.DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"status":"completed"`)

	doc, ok := s.index.get(sub.ID)
	require.True(t, ok)
	assert.Equal(t, "completed", doc.Status)
	assert.Equal(t, rate.Premium, doc.Premium)

	// 4. Underwriter quotes and binds
	var quoted models.Submission
	require.Equal(t, http.StatusOK, s.call(t, http.MethodPost, "/submissions/"+sub.ID+"/decision", `{"action":"quote","notes":"Clean loss history"}`, &quoted))
	assert.Equal(t, models.StatusQuoted, quoted.Status)
	assert.Equal(t, "Clean loss history", quoted.Business.UnderwriterNotes)

	var issued models.Submission
	require.Equal(t, http.StatusCreated, s.call(t, http.MethodPost, "/submissions/"+sub.ID+"/policy", `{"brokerNotes":"Bound per broker request"}`, &issued))
	assert.Equal(t, models.StatusIssued, issued.Status)
	require.NotNil(t, issued.Policy)
	assert.Equal(t, rate.Premium, issued.Policy.Premium)
	assert.Len(t, issued.Policy.Coverages, 3)

	doc, _ = s.index.get(sub.ID)
	assert.Equal(t, "issued", doc.Status)
	assert.Equal(t, issued.Policy.PolicyNumber, doc.PolicyNumber)

	// 5. Dashboard reflects the book
	var dash underwriting.Dashboard
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/dashboard", "", &dash))
	assert.Equal(t, 1, dash.ActiveSubmissions)
	assert.Equal(t, rate.Premium, dash.PipelinePremium)
	assert.Equal(t, 1, dash.ByStatus[models.StatusIssued])

	// 6. Issued submissions cannot be rerun
	var conflict map[string]interface{}
	assert.Equal(t, http.StatusConflict, s.call(t, http.MethodPost, "/submissions/"+sub.ID+"/run", "", &conflict))
}

func TestConcurrentRunsShareOneStore(t *testing.T) {
	s := newStack(t)

	ids := make([]string, 5)
	for i := range ids {
		var sub models.Submission
		require.Equal(t, http.StatusCreated, s.call(t, http.MethodPost, "/submissions", `{"brokerName":"B","insuredName":"Fleet `+string(rune('A'+i))+`"}`, &sub))
		ids[i] = sub.ID
	}
	for _, id := range ids {
		require.Equal(t, http.StatusAccepted, s.call(t, http.MethodPost, "/submissions/"+id+"/run", "", nil))
	}
	for _, id := range ids {
		s.waitForRun(t, id)
	}

	var list struct {
		Total       int                 `json:"total"`
		Submissions []models.Submission `json:"submissions"`
	}
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/submissions?status=completed", "", &list))
	assert.Equal(t, len(ids), list.Total)
	for _, sub := range list.Submissions {
		assert.Equal(t, len(models.StageNames), sub.Stages.CountDone(), sub.ID)
	}
}

func TestReadinessFollowsRedis(t *testing.T) {
	s := newStack(t)

	assert.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/ready", "", nil))
	s.redis.Close()
	assert.Equal(t, http.StatusServiceUnavailable, s.call(t, http.MethodGet, "/ready", "", nil))
}

func BenchmarkPipelineRun(b *testing.B) {
	s := newStack(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var sub models.Submission
		s.call(b, http.MethodPost, "/submissions", `{"brokerName":"B","insuredName":"Bench Fleet"}`, &sub)
		s.call(b, http.MethodPost, "/submissions/"+sub.ID+"/run", "", nil)
		s.waitForRun(b, sub.ID)
	}
}
