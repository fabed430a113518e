// Package sberauth implements the OAuth token flow shared by the Sber AI
// services (GigaChat and SaluteSpeech). Each service gets its own TokenSource
// instance with its own scope and cache; tokens are held in memory only.
package sberauth

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
)

// DefaultTokenURL is the shared Sber OAuth endpoint used by both services.
const DefaultTokenURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"

// Scopes for the two services.
const (
	ScopeGigaChat     = "GIGACHAT_API_PERS"
	ScopeSaluteSpeech = "SALUTE_SPEECH_PERS"
)

const (
	// tokenTTL is the assumed validity window. The issuance response carries
	// no expiry field we trust; Sber tokens live 30 minutes.
	tokenTTL = 30 * time.Minute

	// refreshSkew refreshes the token this long before assumed expiry.
	refreshSkew = 5 * time.Minute
)

// ErrAuth marks token issuance failures so callers can surface the
// "AI/voice unavailable" message instead of a generic one.
var ErrAuth = errors.New("sber auth failed")

// TokenSource obtains and caches a bearer token for one Sber service.
// Safe for concurrent use; a refresh in progress blocks other callers so
// only one issuance request is in flight at a time.
type TokenSource struct {
	tokenURL   string
	authKey    string // pre-shared base64 credential, sent as basic auth
	scope      string
	httpClient *http.Client
	log        *slog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time // overridable in tests
}

// NewTokenSource creates a token source for the given scope. tokenURL may be
// empty to use the production endpoint. insecure disables TLS verification,
// needed when the Russian trusted root CA is not installed on the host.
func NewTokenSource(tokenURL, authKey, scope string, insecure bool) *TokenSource {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &TokenSource{
		tokenURL: tokenURL,
		authKey:  authKey,
		scope:    scope,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		log: logging.WithComponent("sberauth"),
		now: time.Now,
	}
}

// Token returns a bearer token, reusing the cached one while it has more
// than refreshSkew of assumed validity left.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiresAt.Add(-refreshSkew)) {
		return ts.token, nil
	}

	token, err := ts.issue(ctx)
	if err != nil {
		return "", err
	}

	ts.token = token
	ts.expiresAt = ts.now().Add(tokenTTL)
	ts.log.Debug("access token obtained", slog.String("scope", ts.scope))

	return token, nil
}

// issue performs one token issuance request. Caller holds ts.mu.
func (ts *TokenSource) issue(ctx context.Context) (string, error) {
	body := strings.NewReader("scope=" + ts.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrAuth, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.NewString())
	req.Header.Set("Authorization", "Basic "+ts.authKey)

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request failed: %v", ErrAuth, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read token response: %v", ErrAuth, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned status %d", ErrAuth, resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse token response: %v", ErrAuth, err)
	}

	if parsed.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in response", ErrAuth)
	}

	return parsed.AccessToken, nil
}

// Invalidate drops the cached token, forcing the next Token call to reissue.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.token = ""
	ts.expiresAt = time.Time{}
	ts.mu.Unlock()
}
