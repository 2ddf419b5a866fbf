// Package mediaservices is a thin client for the Azure Media Services v2 REST API.
package mediaservices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jmespath/go-jmespath"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"amsplayer/internal/metrics"
	"amsplayer/pkg/tenants"
)

const (
	apiVersion            = "2.15"
	dataServiceVersion    = "1.0"
	maxDataServiceVersion = "3.0"
	defaultMaxBody        = 8 << 20
)

// ErrBodyTooLarge is returned when a response exceeds the client's body limit.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Options controls the outbound HTTP policy. The zero value means a single
// attempt with the transport's own timeouts.
type Options struct {
	Authority string        // Azure AD authority, e.g. https://login.microsoftonline.com
	Timeout   time.Duration // per-request client timeout; 0 keeps transport defaults
	RetryMax  int           // extra attempts on connection errors and 5xx; 0 disables
	Transport http.RoundTripper
	Tokens    TokenSource // overrides the service principal
	Log       *zap.SugaredLogger
}

type Client struct {
	endpoint string
	host     string
	http     *retryablehttp.Client
	tokens   TokenSource
	log      *zap.SugaredLogger
	maxBody  int64
}

// New builds a client for one organization's credentials.
func New(creds tenants.Credentials, opts Options) (*Client, error) {
	if !creds.Complete() {
		return nil, errors.New("mediaservices: incomplete credentials")
	}
	endpoint := strings.TrimSpace(creds.RESTAPIEndpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("mediaservices: invalid rest_api_endpoint %q", endpoint)
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	hc := NewHTTPClient(opts.Timeout, opts.RetryMax, opts.Transport, log)
	tokens := opts.Tokens
	if tokens == nil {
		authority := opts.Authority
		if authority == "" {
			authority = "https://login.microsoftonline.com"
		}
		tokens = NewServicePrincipal(authority, creds.Tenant, creds.ClientID, creds.ClientSecret, hc)
	}
	return &Client{endpoint: endpoint, host: u.Host, http: hc, tokens: tokens, log: log, maxBody: defaultMaxBody}, nil
}

// NewHTTPClient returns the retrying client shared by the Media Services and
// transcript calls. Non-retryable outcomes are handed back as-is so callers
// still see the status code.
func NewHTTPClient(timeout time.Duration, retryMax int, transport http.RoundTripper, log *zap.SugaredLogger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.HTTPClient.Timeout = timeout
	if transport != nil {
		c.HTTPClient.Transport = transport
	}
	c.HTTPClient.Transport = otelhttp.NewTransport(c.HTTPClient.Transport)
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = leveled{log}
	return c
}

// GetInputAssetByVideoID returns the asset of the given kind whose
// AlternateId is videoID, or nil if there is none.
func (c *Client) GetInputAssetByVideoID(ctx context.Context, videoID string, kind AssetKind) (*Asset, error) {
	q := url.Values{"$filter": {fmt.Sprintf("AlternateId eq '%s'", odataQuote(videoID))}}
	doc, err := c.getDocument(ctx, "assets", "Assets", q)
	if err != nil {
		return nil, err
	}
	expr := fmt.Sprintf("value[?Name && ends_with(Name, '::%s')] | [0]", kind)
	var a Asset
	found, err := selectInto(expr, doc, &a)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

// GetAssetLocator returns the first locator of type t published for the asset, or nil.
func (c *Client) GetAssetLocator(ctx context.Context, assetID string, t LocatorType) (*Locator, error) {
	doc, err := c.getDocument(ctx, "asset_locators", entityPath("Assets", assetID, "Locators"), nil)
	if err != nil {
		return nil, err
	}
	var l Locator
	found, err := selectInto(fmt.Sprintf("value[?Type == `%d`] | [0]", int(t)), doc, &l)
	if err != nil || !found {
		return nil, err
	}
	return &l, nil
}

func (c *Client) GetAssetFiles(ctx context.Context, assetID string) ([]AssetFile, error) {
	var env struct {
		Value []AssetFile `json:"value"`
	}
	if err := c.getInto(ctx, "asset_files", entityPath("Assets", assetID, "Files"), nil, &env); err != nil {
		return nil, err
	}
	return env.Value, nil
}

// GetListLocators lists every locator in the account.
func (c *Client) GetListLocators(ctx context.Context) ([]Locator, error) {
	var env struct {
		Value []Locator `json:"value"`
	}
	if err := c.getInto(ctx, "locators", "Locators", nil, &env); err != nil {
		return nil, err
	}
	if env.Value == nil {
		env.Value = []Locator{}
	}
	return env.Value, nil
}

func (c *Client) getInto(ctx context.Context, op, rel string, q url.Values, v any) error {
	body, err := c.get(ctx, op, rel, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("mediaservices %s: decode: %w", op, err)
	}
	return nil
}

func (c *Client) getDocument(ctx context.Context, op, rel string, q url.Values) (any, error) {
	var doc any
	if err := c.getInto(ctx, op, rel, q, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, op, rel string, q url.Values) ([]byte, error) {
	u := c.endpoint + rel
	if len(q) > 0 {
		u += "?" + encodeQuery(q)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req.Request, tok)
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("mediaservices %s: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("mediaservices %s: read body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("media services call failed", "op", op, "status", resp.StatusCode)
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	if int64(len(body)) > c.maxBody {
		c.log.Warnw("media services response exceeds limit", "op", op, "limit", c.maxBody)
		return nil, fmt.Errorf("mediaservices %s: %w (%d bytes)", op, ErrBodyTooLarge, c.maxBody)
	}
	return body, nil
}

func (c *Client) setHeaders(r *http.Request, tok Token) {
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("DataServiceVersion", dataServiceVersion)
	r.Header.Set("MaxDataServiceVersion", maxDataServiceVersion)
	r.Header.Set("Accept", "application/json")
	r.Header.Set("Accept-Charset", "UTF-8")
	r.Header.Set("x-ms-version", apiVersion)
	r.Header.Set("Authorization", tok.Header())
	r.Host = c.host
}

// selectInto evaluates a JMESPath expression and decodes a non-null result into v.
func selectInto(expr string, doc, v any) (bool, error) {
	sel, err := jmespath.Search(expr, doc)
	if err != nil {
		return false, fmt.Errorf("mediaservices: select %q: %w", expr, err)
	}
	if sel == nil {
		return false, nil
	}
	b, err := json.Marshal(sel)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, v)
}

// entityPath renders Set('id')/Nav.
func entityPath(set, id, nav string) string {
	return fmt.Sprintf("%s('%s')/%s", set, url.PathEscape(odataQuote(id)), nav)
}

func odataQuote(s string) string { return strings.ReplaceAll(s, "'", "''") }

// encodeQuery percent-encodes spaces; OData filters do not accept '+'.
func encodeQuery(q url.Values) string {
	return strings.ReplaceAll(q.Encode(), "+", "%20")
}

// leveled adapts zap to retryablehttp.LeveledLogger.
type leveled struct{ l *zap.SugaredLogger }

func (z leveled) Error(msg string, kv ...interface{}) { z.l.Errorw(msg, kv...) }
func (z leveled) Info(msg string, kv ...interface{})  { z.l.Debugw(msg, kv...) }
func (z leveled) Debug(msg string, kv ...interface{}) { z.l.Debugw(msg, kv...) }
func (z leveled) Warn(msg string, kv ...interface{})  { z.l.Warnw(msg, kv...) }
