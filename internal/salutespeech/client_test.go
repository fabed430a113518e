package salutespeech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/sberauth"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok"}`))
	}))
	t.Cleanup(authSrv.Close)

	recSrv := httptest.NewServer(handler)
	t.Cleanup(recSrv.Close)

	tokens := sberauth.NewTokenSource(authSrv.URL, "key", sberauth.ScopeSaluteSpeech, false)
	return NewClient(recSrv.URL, tokens, false)
}

func TestRecognizeSendsPCMWithBearer(t *testing.T) {
	var gotContentType, gotAuth string
	var gotBody []byte

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"result":["  ","привет мир","second"],"status":200}`))
	})

	audio := []byte{0x01, 0x02, 0x03, 0x04}
	text, err := client.Recognize(context.Background(), audio)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}

	if text != "привет мир" {
		t.Errorf("text = %q, want first non-empty candidate", text)
	}
	if gotContentType != "audio/x-pcm;bit=16;rate=16000" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if string(gotBody) != string(audio) {
		t.Errorf("body = %v, want raw audio bytes", gotBody)
	}
}

func TestRecognizeEmptyTranscriptIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[],"status":200}`))
	})

	text, err := client.Recognize(context.Background(), []byte{0x00})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestRecognizeServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`oops`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.Recognize(context.Background(), []byte{0x00})
			if !errors.Is(err, ErrService) {
				t.Errorf("error = %v, want ErrService", err)
			}
		})
	}
}

func TestRecognizeAuthFailurePropagates(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer authSrv.Close()

	tokens := sberauth.NewTokenSource(authSrv.URL, "key", sberauth.ScopeSaluteSpeech, false)
	client := NewClient("http://127.0.0.1:0", tokens, false)

	_, err := client.Recognize(context.Background(), []byte{0x00})
	if !errors.Is(err, sberauth.ErrAuth) {
		t.Errorf("error = %v, want ErrAuth", err)
	}
}
