package sberauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestServer(t *testing.T, issued *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Basic ") {
			t.Errorf("Authorization = %q, want basic auth", got)
		}
		if r.Header.Get("RqUID") == "" {
			t.Error("RqUID header is empty")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "scope=") {
			t.Errorf("body = %q, want scope form field", body)
		}
		*issued++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token-abc"}`))
	}))
}

func TestTokenCachedWithinValidityWindow(t *testing.T) {
	issued := 0
	srv := newTestServer(t, &issued)
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "key", ScopeGigaChat, false)

	first, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	second, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	if first != "test-token-abc" || second != first {
		t.Errorf("tokens = %q, %q; want identical cached token", first, second)
	}
	if issued != 1 {
		t.Errorf("issuance requests = %d, want 1", issued)
	}
}

func TestTokenRefreshedAfterSkew(t *testing.T) {
	issued := 0
	srv := newTestServer(t, &issued)
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "key", ScopeGigaChat, false)

	now := time.Now()
	ts.now = func() time.Time { return now }

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	// 26 minutes in: inside the 5-minute refresh skew of the 30-minute TTL.
	now = now.Add(26 * time.Minute)

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if issued != 2 {
		t.Errorf("issuance requests = %d, want 2 (refresh inside skew)", issued)
	}
}

func TestTokenErrorPaths(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "missing token field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"expires_at": 123}`))
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			ts := NewTokenSource(srv.URL, "key", ScopeSaluteSpeech, false)
			_, err := ts.Token(context.Background())
			if err == nil {
				t.Fatal("Token() error = nil, want auth error")
			}
			if !errors.Is(err, ErrAuth) {
				t.Errorf("error %v does not wrap ErrAuth", err)
			}
		})
	}
}

func TestTokenConcurrentRefreshSingleIssuance(t *testing.T) {
	issued := 0
	var issuedMu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issuedMu.Lock()
		issued++
		issuedMu.Unlock()
		time.Sleep(10 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "key", ScopeGigaChat, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ts.Token(context.Background()); err != nil {
				t.Errorf("Token() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if issued != 1 {
		t.Errorf("issuance requests = %d, want 1 (refresh is serialized)", issued)
	}
}

func TestInvalidateForcesReissue(t *testing.T) {
	issued := 0
	srv := newTestServer(t, &issued)
	defer srv.Close()

	ts := NewTokenSource(srv.URL, "key", ScopeGigaChat, false)

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	ts.Invalidate()
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	if issued != 2 {
		t.Errorf("issuance requests = %d, want 2 after Invalidate", issued)
	}
}
