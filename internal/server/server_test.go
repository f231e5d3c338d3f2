package server

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sakthi-S29/trackwise/internal/ai"
	"github.com/Sakthi-S29/trackwise/internal/pipeline"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

const testToken = "test-trackwise-token"

// testEmbedder produces deterministic vectors and counts calls
type testEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *testEmbedder) Name() string { return "test-embedder" }

func (e *testEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	vector := make([]float32, 8)
	var norm float32
	for i := range vector {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		v := float32(h.Sum32()%1000)/500 - 1
		vector[i] = v
		norm += v * v
	}
	scale := float32(1 / math.Sqrt(float64(norm)))
	for i := range vector {
		vector[i] *= scale
	}
	return vector, nil
}

func (e *testEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vector
	}
	return out, nil
}

func (e *testEmbedder) Dimension() int { return 8 }
func (e *testEmbedder) Close() error   { return nil }

func (e *testEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// testGenerator returns a fixed answer
type testGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *testGenerator) Name() string { return "test-generator" }

func (g *testGenerator) Complete(_ context.Context, _ *ai.CompletionRequest) (*ai.CompletionResponse, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return &ai.CompletionResponse{Content: "You spent $42.5 at Cafe Luna.", FinishReason: "stop", CreatedAt: time.Now()}, nil
}

func (g *testGenerator) MaxTokens() int { return 4096 }
func (g *testGenerator) Close() error   { return nil }

func (g *testGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newTestServer(t *testing.T, local bool) (*Server, *testEmbedder, *testGenerator) {
	t.Helper()

	embedder := &testEmbedder{}
	generator := &testGenerator{}
	index := vectorindex.NewFlatIndex(vectorindex.FlatOptions{})

	ingestor, err := pipeline.NewIngestor(embedder, index, nil, nil)
	if err != nil {
		t.Fatalf("NewIngestor() error = %v", err)
	}
	retriever, err := pipeline.NewRetriever(embedder, index, 5, nil)
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}
	query, err := pipeline.NewQueryService(retriever, generator, pipeline.QueryOptions{
		Local:       local,
		MaxTokens:   500,
		Temperature: 0.5,
	}, nil)
	if err != nil {
		t.Fatalf("NewQueryService() error = %v", err)
	}

	srv := New(ingestor, query, index, Options{Token: testToken, Local: local, Timeout: 5 * time.Second}, nil)
	return srv, embedder, generator
}

func doRequest(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	t.Run("missing token rejected before any work", func(t *testing.T) {
		srv, embedder, generator := newTestServer(t, false)
		rec := doRequest(t, srv, http.MethodPost, "/query", "", `{"query":"spend?"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if embedder.callCount() != 0 || generator.callCount() != 0 {
			t.Error("providers were called for an unauthenticated request")
		}

		var envelope struct {
			Error struct {
				Kind string `json:"kind"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("error body is not an envelope: %v", err)
		}
		if envelope.Error.Kind != "unauthorized" {
			t.Errorf("error kind = %q", envelope.Error.Kind)
		}
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		srv, _, _ := newTestServer(t, false)
		rec := doRequest(t, srv, http.MethodPost, "/query", "wrong-token", `{"query":"spend?"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("health endpoint is open", func(t *testing.T) {
		srv, _, _ := newTestServer(t, false)
		rec := doRequest(t, srv, http.MethodGet, "/healthz", "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestIngestEndpoint(t *testing.T) {
	t.Run("valid record indexed", func(t *testing.T) {
		srv, _, _ := newTestServer(t, false)
		body := `{"id":"txn-1","type":"expense","amount":42.5,"date":"2024-03-15","vendor":"Cafe Luna","category":"Dining","description":"Lunch","line_items":[{"item":"Sandwich","amount":12.5}]}`
		rec := doRequest(t, srv, http.MethodPost, "/ingest", testToken, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.ID != "txn-1" {
			t.Errorf("id = %q", resp.ID)
		}
		if !strings.Contains(resp.Text, "Sandwich ($12.5)") {
			t.Errorf("text = %q, want it to enumerate line items", resp.Text)
		}
	})

	t.Run("invalid record gets 400", func(t *testing.T) {
		srv, embedder, _ := newTestServer(t, false)
		rec := doRequest(t, srv, http.MethodPost, "/ingest", testToken, `{"id":"txn-1"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if embedder.callCount() != 0 {
			t.Error("embedder called for an invalid record")
		}
	})

	t.Run("malformed body gets 400", func(t *testing.T) {
		srv, _, _ := newTestServer(t, false)
		rec := doRequest(t, srv, http.MethodPost, "/ingest", testToken, "{")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("GET not allowed", func(t *testing.T) {
		srv, _, _ := newTestServer(t, false)
		rec := doRequest(t, srv, http.MethodGet, "/ingest", testToken, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestQueryEndpoint(t *testing.T) {
	ingestBody := `{"id":"txn-1","type":"expense","amount":42.5,"date":"2024-03-15","vendor":"Cafe Luna","category":"Dining"}`

	t.Run("managed response shape", func(t *testing.T) {
		srv, _, _ := newTestServer(t, false)
		if rec := doRequest(t, srv, http.MethodPost, "/ingest", testToken, ingestBody); rec.Code != http.StatusOK {
			t.Fatalf("ingest status = %d", rec.Code)
		}

		rec := doRequest(t, srv, http.MethodPost, "/query", testToken, `{"query":"what did I spend at Cafe Luna?"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Response        string `json:"response"`
			OpenSearchDebug struct {
				HitsCount int                `json:"hits_count"`
				FirstHit  *vectorindex.Entry `json:"first_hit"`
			} `json:"opensearch_debug"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Response == "" {
			t.Error("response answer is empty")
		}
		if resp.OpenSearchDebug.HitsCount != 1 {
			t.Errorf("hits_count = %d, want 1", resp.OpenSearchDebug.HitsCount)
		}
		if resp.OpenSearchDebug.FirstHit == nil || resp.OpenSearchDebug.FirstHit.ID != "txn-1" {
			t.Errorf("first_hit = %+v", resp.OpenSearchDebug.FirstHit)
		}
	})

	t.Run("local response shape", func(t *testing.T) {
		srv, _, _ := newTestServer(t, true)
		if rec := doRequest(t, srv, http.MethodPost, "/ingest", testToken, ingestBody); rec.Code != http.StatusOK {
			t.Fatalf("ingest status = %d", rec.Code)
		}

		rec := doRequest(t, srv, http.MethodPost, "/query", testToken, `{"query":"cafe spend?"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp struct {
			Query  string `json:"query"`
			Answer string `json:"answer"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Query != "cafe spend?" {
			t.Errorf("query = %q", resp.Query)
		}
		if resp.Answer == "" {
			t.Error("answer is empty")
		}
		if strings.Contains(rec.Body.String(), "opensearch_debug") {
			t.Error("local response should not carry managed debug metadata")
		}
	})

	t.Run("empty query gets 400 without provider calls", func(t *testing.T) {
		srv, embedder, generator := newTestServer(t, false)
		rec := doRequest(t, srv, http.MethodPost, "/query", testToken, `{"query":"   "}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if embedder.callCount() != 0 || generator.callCount() != 0 {
			t.Error("providers were called for an empty query")
		}
	})

	t.Run("empty index still answers via sentinel", func(t *testing.T) {
		srv, _, _ := newTestServer(t, false)
		rec := doRequest(t, srv, http.MethodPost, "/query", testToken, `{"query":"anything?"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp struct {
			OpenSearchDebug struct {
				HitsCount int                `json:"hits_count"`
				FirstHit  *vectorindex.Entry `json:"first_hit"`
			} `json:"opensearch_debug"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.OpenSearchDebug.HitsCount != 0 || resp.OpenSearchDebug.FirstHit != nil {
			t.Errorf("debug = %+v, want zero hits and null first_hit", resp.OpenSearchDebug)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, false)

	if rec := doRequest(t, srv, http.MethodPost, "/ingest", testToken,
		`{"id":"txn-1","type":"expense","amount":5,"date":"2024-01-01"}`); rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d", rec.Code)
	}

	rec := doRequest(t, srv, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Indexed int    `json:"indexed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" || resp.Indexed != 1 {
		t.Errorf("health = %+v", resp)
	}
}
