package mediaservices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"amsplayer/internal/metrics"
)

// MediaResource is the AAD resource identifier for the Media Services REST API.
const MediaResource = "https://rest.media.azure.net"

// refresh this long before the token's stated expiry
const expirySkew = 60 * time.Second

type Token struct {
	Type        string
	AccessToken string
	ExpiresAt   time.Time
}

// Header renders the Authorization header value.
func (t Token) Header() string {
	typ := t.Type
	if typ == "" {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

type TokenSource interface {
	Token(ctx context.Context) (Token, error)
}

// ServicePrincipal obtains client-credential tokens from Azure AD. The token
// is fetched on first use and shared until it nears expiry.
type ServicePrincipal struct {
	tokenURL     string
	clientID     string
	clientSecret string
	resource     string
	http         *retryablehttp.Client
	now          func() time.Time

	mu  sync.Mutex
	tok *Token
}

func NewServicePrincipal(authority, tenant, clientID, clientSecret string, hc *retryablehttp.Client) *ServicePrincipal {
	return &ServicePrincipal{
		tokenURL:     strings.TrimRight(authority, "/") + "/" + url.PathEscape(tenant) + "/oauth2/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		resource:     MediaResource,
		http:         hc,
		now:          time.Now,
	}
}

type tokenResponse struct {
	TokenType   string  `json:"token_type"`
	AccessToken string  `json:"access_token"`
	ExpiresIn   flexInt `json:"expires_in"`
	ExpiresOn   flexInt `json:"expires_on"`
}

func (s *ServicePrincipal) Token(ctx context.Context) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok != nil && s.now().Before(s.tok.ExpiresAt.Add(-expirySkew)) {
		return *s.tok, nil
	}
	tok, err := s.fetch(ctx)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return Token{}, err
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	s.tok = &tok
	return tok, nil
}

func (s *ServicePrincipal) fetch(ctx context.Context) (Token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"resource":      {s.resource},
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("azure ad token: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Token{}, fmt.Errorf("azure ad token: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Token{}, &StatusError{Op: "token", StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, fmt.Errorf("azure ad token: decode: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("azure ad token: empty access_token")
	}
	tok := Token{Type: tr.TokenType, AccessToken: tr.AccessToken}
	switch {
	case tr.ExpiresOn > 0:
		tok.ExpiresAt = time.Unix(int64(tr.ExpiresOn), 0)
	case tr.ExpiresIn > 0:
		tok.ExpiresAt = s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	default:
		tok.ExpiresAt = s.now().Add(time.Hour)
	}
	return tok, nil
}

// StaticToken never refreshes.
type StaticToken Token

func (t StaticToken) Token(context.Context) (Token, error) { return Token(t), nil }

func snippet(b []byte) string {
	const max = 512
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
