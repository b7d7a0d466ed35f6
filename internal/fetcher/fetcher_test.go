package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mfenderov/doccorpus/internal/store"
	"github.com/spf13/afero"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(afero.NewMemMapFs(), "pdfs")
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return s
}

func TestFetcher_DownloadsToStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 test body"))
	}))
	defer server.Close()

	s := newStore(t)
	f := New(Config{Timeout: 5 * time.Second, UserAgent: "test-agent"}, s)

	if err := f.Fetch(t.Context(), server.URL+"/doc.pdf", "doc.pdf"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	file, err := s.Open("doc.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	if string(data) != "%PDF-1.4 test body" {
		t.Errorf("stored content = %q", data)
	}
}

func TestFetcher_BadStatusIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	s := newStore(t)
	f := New(Config{Timeout: 5 * time.Second}, s)

	err := f.Fetch(t.Context(), server.URL+"/missing.pdf", "missing.pdf")
	if err == nil {
		t.Fatal("Fetch() should fail on 404")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", statusErr.StatusCode)
	}

	if has, _ := s.Has("missing.pdf"); has {
		t.Error("a failed fetch must not create a record")
	}
}

func TestFetcher_TimeoutIsFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	s := newStore(t)
	f := New(Config{Timeout: 100 * time.Millisecond}, s)

	start := time.Now()
	if err := f.Fetch(t.Context(), server.URL+"/slow.pdf", "slow.pdf"); err == nil {
		t.Fatal("Fetch() should fail on timeout")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Fetch() took %v, timeout not honoured", elapsed)
	}
	if has, _ := s.Has("slow.pdf"); has {
		t.Error("a timed-out fetch must not create a record")
	}
}

func TestFetcher_SetsUserAgent(t *testing.T) {
	var receivedUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	f := New(Config{UserAgent: "doccorpus-test/1.0"}, newStore(t))
	if err := f.Fetch(t.Context(), server.URL+"/a.pdf", "a.pdf"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if receivedUA != "doccorpus-test/1.0" {
		t.Errorf("User-Agent = %q, want %q", receivedUA, "doccorpus-test/1.0")
	}
}

func TestFetcher_CancelledContext(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	f := New(Config{}, newStore(t))
	if err := f.Fetch(ctx, server.URL+"/a.pdf", "a.pdf"); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
	if requests != 0 {
		t.Errorf("cancelled fetch issued %d requests", requests)
	}
}

func TestFetcher_ExistingFileIsNotOverwritten(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new"))
	}))
	defer server.Close()

	s := newStore(t)
	if _, err := s.Put("a.pdf", strings.NewReader("old")); err != nil {
		t.Fatal(err)
	}

	f := New(Config{}, s)
	err := f.Fetch(t.Context(), server.URL+"/a.pdf", "a.pdf")
	if !errors.Is(err, store.ErrExists) {
		t.Errorf("Fetch() error = %v, want store.ErrExists", err)
	}
}

func TestFetcher_OversizedBodyIsFailure(t *testing.T) {
	body := strings.Repeat("x", 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	tests := []struct {
		name    string
		limit   int
		wantErr bool
	}{
		{"below limit", 100, true},
		{"exactly at limit", 1000, true},
		{"above limit", 1001, false},
		{"unlimited", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			f := New(Config{Timeout: 5 * time.Second, MaxBodySize: tt.limit}, s)

			err := f.Fetch(t.Context(), server.URL+"/big.pdf", "big.pdf")
			has, _ := s.Has("big.pdf")

			if tt.wantErr {
				if !errors.Is(err, ErrTooLarge) {
					t.Errorf("Fetch() error = %v, want ErrTooLarge", err)
				}
				if has {
					t.Error("a truncated body must not be stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if !has {
				t.Error("expected the document to be stored")
			}
		})
	}
}

func TestFetcher_StatusClasses(t *testing.T) {
	tests := []struct {
		status  int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusNonAuthoritativeInfo, false},
		{http.StatusPartialContent, false},
		{http.StatusForbidden, true},
		{http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("%PDF"))
			}))
			defer server.Close()

			s := newStore(t)
			f := New(Config{Timeout: 5 * time.Second}, s)
			err := f.Fetch(t.Context(), server.URL+"/a.pdf", "a.pdf")
			has, _ := s.Has("a.pdf")

			if tt.wantErr {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
					t.Errorf("Fetch() error = %v, want status %d", err, tt.status)
				}
				if has {
					t.Error("a failed fetch must not create a record")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if !has {
				t.Error("expected the document to be stored")
			}
		})
	}
}
