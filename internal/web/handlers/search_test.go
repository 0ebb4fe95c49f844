package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-index/internal/search"
)

func TestSearchHandler_RequiresQuery(t *testing.T) {
	indexer := testIndexer(t)
	searcher, feedback := testSearcher(t, indexer)
	h := NewSearchHandler(searcher, feedback, search.NewSimilarIndex(), indexer)

	rec := doRequest(http.HandlerFunc(h.Search), httptest.NewRequest(http.MethodGet, "/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", rec.Code)
	}
}

func TestSearchHandler_Search(t *testing.T) {
	indexer := testIndexer(t,
		testEntry("a", "/p/a.txt", "txt"),
		testEntry("b", "/p/b.jpg", "jpg"),
	)
	searcher, feedback := testSearcher(t, indexer)
	h := NewSearchHandler(searcher, feedback, search.NewSimilarIndex(), indexer)

	rec := doRequest(http.HandlerFunc(h.Search),
		httptest.NewRequest(http.MethodGet, "/search?q=anything&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp search.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected both matching entries, got %+v", resp)
	}
}

func TestSearchHandler_SearchFileTypeFilter(t *testing.T) {
	indexer := testIndexer(t,
		testEntry("a", "/p/a.txt", "txt"),
		testEntry("b", "/p/b.jpg", "jpg"),
	)
	searcher, feedback := testSearcher(t, indexer)
	h := NewSearchHandler(searcher, feedback, search.NewSimilarIndex(), indexer)

	rec := doRequest(http.HandlerFunc(h.Search),
		httptest.NewRequest(http.MethodGet, "/search?q=anything&file_types=jpg", nil))

	var resp search.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Type != "jpg" {
		t.Errorf("expected only the jpg, got %+v", resp)
	}
}

func TestSearchHandler_InvalidConfidence(t *testing.T) {
	indexer := testIndexer(t)
	searcher, feedback := testSearcher(t, indexer)
	h := NewSearchHandler(searcher, feedback, search.NewSimilarIndex(), indexer)

	rec := doRequest(http.HandlerFunc(h.Search),
		httptest.NewRequest(http.MethodGet, "/search?q=anything&confidence=lots", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad confidence, got %d", rec.Code)
	}
}

func TestSearchHandler_Feedback(t *testing.T) {
	indexer := testIndexer(t, testEntry("a", "/p/a.txt", "txt"))
	searcher, feedback := testSearcher(t, indexer)
	h := NewSearchHandler(searcher, feedback, search.NewSimilarIndex(), indexer)

	body := `{"query": "beach", "file_id": "a", "feedback": "rejected"}`
	rec := doRequest(http.HandlerFunc(h.Feedback),
		httptest.NewRequest(http.MethodPost, "/search/feedback", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The rejected file no longer shows up for the same query.
	res := doRequest(http.HandlerFunc(h.Search),
		httptest.NewRequest(http.MethodGet, "/search?q=beach", nil))
	if strings.Contains(res.Body.String(), `"file_id":"a"`) {
		t.Errorf("rejected file must be excluded: %s", res.Body.String())
	}
}

func TestSearchHandler_FeedbackValidation(t *testing.T) {
	indexer := testIndexer(t)
	searcher, feedback := testSearcher(t, indexer)
	h := NewSearchHandler(searcher, feedback, search.NewSimilarIndex(), indexer)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{oops"},
		{"unknown feedback value", `{"query": "q", "file_id": "a", "feedback": "maybe"}`},
		{"missing file id", `{"query": "q", "feedback": "confirmed"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/search/feedback", strings.NewReader(tc.body))
			if rec := doRequest(http.HandlerFunc(h.Feedback), req); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestSearchHandler_Similar(t *testing.T) {
	indexer := testIndexer(t,
		testEntry("anchor", "/p/anchor.txt", "txt"),
		testEntry("other", "/p/other.txt", "txt"),
	)
	similar := search.NewSimilarIndex()
	similar.Rebuild(indexer.Entries())

	searcher, feedback := testSearcher(t, indexer)
	h := NewSearchHandler(searcher, feedback, similar, indexer)

	body := `{"file_id": "anchor"}`
	rec := doRequest(http.HandlerFunc(h.Similar),
		httptest.NewRequest(http.MethodPost, "/search/similar", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "/p/other.txt") {
		t.Errorf("expected the neighbor with its path filled in: %s", rec.Body.String())
	}
}

func TestSearchHandler_SimilarUnknownFile(t *testing.T) {
	indexer := testIndexer(t)
	searcher, feedback := testSearcher(t, indexer)
	h := NewSearchHandler(searcher, feedback, search.NewSimilarIndex(), indexer)

	body := `{"file_id": "missing"}`
	rec := doRequest(http.HandlerFunc(h.Similar),
		httptest.NewRequest(http.MethodPost, "/search/similar", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
