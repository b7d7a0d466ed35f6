package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mfenderov/doccorpus/pkg/models"
)

func skipIfNoES(t *testing.T) {
	if os.Getenv("SKIP_ES_TESTS") == "1" {
		t.Skip("Skipping ES tests (SKIP_ES_TESTS=1)")
	}

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "test-skip-check",
	})
	if err != nil {
		t.Skipf("Skipping ES tests: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !client.Ping(ctx) {
		t.Skip("Skipping ES tests: Elasticsearch not available")
	}
}

// roundTrip marshals v the way the client sends it and decodes it back
// into generic JSON.
func roundTrip(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return out
}

func TestSearchBody_DateRange(t *testing.T) {
	tests := []struct {
		name       string
		q          Query
		wantFilter map[string]any
	}{
		{"no range", Query{Text: "budget"}, nil},
		{"from only", Query{Text: "budget", From: "2024-01-01"}, map[string]any{"gte": "2024-01-01"}},
		{"both", Query{Text: "budget", From: "2024-01-01", To: "2024-12-31"},
			map[string]any{"gte": "2024-01-01", "lte": "2024-12-31"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := roundTrip(t, searchBody(tt.q))
			boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)

			filter, ok := boolQuery["filter"]
			if tt.wantFilter == nil {
				if ok {
					t.Errorf("unexpected filter %v", filter)
				}
				return
			}
			got := filter.([]any)[0].(map[string]any)["range"].(map[string]any)["date"].(map[string]any)
			for k, v := range tt.wantFilter {
				if got[k] != v {
					t.Errorf("range[%s] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.wantFilter) {
				t.Errorf("range = %v, want %v", got, tt.wantFilter)
			}
		})
	}
}

func TestSearchBody_DefaultLimit(t *testing.T) {
	body := roundTrip(t, searchBody(Query{Text: "x"}))
	if body["size"] != float64(10) {
		t.Errorf("size = %v, want 10", body["size"])
	}
}

func TestHybridBody_FiltersBothRetrievers(t *testing.T) {
	body := roundTrip(t, hybridBody(Query{Text: "x", To: "2023-12-31", Limit: 5}, []float32{0.1, 0.2}))

	retrievers := body["retriever"].(map[string]any)["rrf"].(map[string]any)["retrievers"].([]any)
	if len(retrievers) != 2 {
		t.Fatalf("got %d retrievers, want 2", len(retrievers))
	}

	standard := retrievers[0].(map[string]any)["standard"].(map[string]any)
	if _, ok := standard["query"].(map[string]any)["bool"].(map[string]any)["filter"]; !ok {
		t.Error("standard retriever is missing the date filter")
	}
	knn := retrievers[1].(map[string]any)["knn"].(map[string]any)
	if _, ok := knn["filter"]; !ok {
		t.Error("knn retriever is missing the date filter")
	}
	if knn["k"] != float64(5) || knn["num_candidates"] != float64(10) {
		t.Errorf("knn k=%v num_candidates=%v, want 5 and 10", knn["k"], knn["num_candidates"])
	}
}

func TestIndexMapping(t *testing.T) {
	props := roundTrip(t, indexMapping(768))["mappings"].(map[string]any)["properties"].(map[string]any)

	if typ := props["date"].(map[string]any)["type"]; typ != "keyword" {
		t.Errorf("date type = %v, want keyword", typ)
	}
	if dims := props["embedding"].(map[string]any)["dims"]; dims != float64(768) {
		t.Errorf("embedding dims = %v, want 768", dims)
	}

	props = roundTrip(t, indexMapping(0))["mappings"].(map[string]any)["properties"].(map[string]any)
	if _, ok := props["embedding"]; ok {
		t.Error("mapping without dims should not declare an embedding field")
	}
}

// fakeES answers like an Elasticsearch node so the client's product
// check passes.
func fakeES(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{Addresses: []string{server.URL}, Index: "corpus"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestIndexDocument_DerivesID(t *testing.T) {
	var path string
	var body map[string]any
	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	doc := models.ExtractedDocument{Filename: "A(2024)09-03.pdf", Date: "2024-09-03", Text: "Hello"}
	if err := client.IndexDocument(context.Background(), doc); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	wantID := models.GenerateDocumentID(doc.Filename)
	if !strings.HasSuffix(path, "/corpus/_doc/"+wantID) {
		t.Errorf("path = %q, want document ID %s", path, wantID)
	}
	if body["text"] != "Hello" || body["date"] != "2024-09-03" {
		t.Errorf("indexed body = %v", body)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"found":false}`))
	})

	doc, err := client.GetDocument(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if doc != nil {
		t.Errorf("GetDocument() = %+v, want nil", doc)
	}
}

func TestSearch_DecodesHits(t *testing.T) {
	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"id":"1","filename":"a.pdf","date":"2024-09-03","text":"Hello"}},
			{"_source":{"id":"2","filename":"b.pdf","date":"","text":""}}
		]}}`))
	})

	docs, err := client.Search(context.Background(), Query{Text: "hello"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(docs) != 2 || docs[0].Filename != "a.pdf" || docs[1].HasDate() {
		t.Errorf("Search() = %+v", docs)
	}
}

func TestClient_IndexAndSearch(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "doccorpus-test-search",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	client.DeleteIndex(ctx)
	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() error = %v", err)
	}
	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() second call error = %v", err)
	}
	defer client.DeleteIndex(ctx)

	docs := []models.ExtractedDocument{
		{Filename: "A(2024)09-03.pdf", Date: "2024-09-03", Text: "Debate on the agricultural budget"},
		{Filename: "B(2023)05-10.pdf", Date: "2023-05-10", Text: "Vote on the agricultural policy"},
		{Filename: "C(2024)13-40.pdf", Date: "2024-13-40", Text: "Fisheries report"},
	}
	for _, doc := range docs {
		if err := client.IndexDocument(ctx, doc); err != nil {
			t.Fatalf("IndexDocument(%s) error = %v", doc.Filename, err)
		}
	}
	client.Refresh(ctx)

	results, err := client.Search(ctx, Query{Text: "agricultural"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Search(agricultural) returned %d results, want 2", len(results))
	}

	results, err = client.Search(ctx, Query{Text: "agricultural", From: "2024-01-01"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Filename != "A(2024)09-03.pdf" {
		t.Errorf("date-filtered Search() = %+v", results)
	}

	got, err := client.GetDocument(ctx, models.GenerateDocumentID("C(2024)13-40.pdf"))
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got == nil || got.Date != "2024-13-40" {
		t.Errorf("GetDocument() = %+v, want the unvalidated date preserved", got)
	}
}
