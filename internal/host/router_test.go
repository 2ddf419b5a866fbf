package host

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"amsplayer/internal/assets"
	"amsplayer/internal/block"
	"amsplayer/internal/catalog"
	"amsplayer/internal/mediaservices"
	"amsplayer/internal/transcript"
	"amsplayer/pkg/config"
	"amsplayer/pkg/problems"
	"amsplayer/pkg/tenants"
)

const usage = "block-v1:edX+DemoX+2024+type@azure_media_services+block@intro"

type stubMedia struct{ err error }

func (m stubMedia) GetInputAssetByVideoID(context.Context, string, mediaservices.AssetKind) (*mediaservices.Asset, error) {
	return &mediaservices.Asset{ID: "asset-1"}, m.err
}

func (m stubMedia) GetAssetLocator(_ context.Context, _ string, t mediaservices.LocatorType) (*mediaservices.Locator, error) {
	if t == mediaservices.LocatorSAS {
		return &mediaservices.Locator{Path: "https://sa.blob/asset-1?sv=1"}, nil
	}
	return &mediaservices.Locator{Path: "https://ma.host/loc/"}, nil
}

func (m stubMedia) GetAssetFiles(context.Context, string) ([]mediaservices.AssetFile, error) {
	return []mediaservices.AssetFile{{Name: "v_1.mp4", MimeType: "video/mp4", SizeBytes: 1}}, nil
}

type stubTranscripts struct{}

func (stubTranscripts) Fetch(_ context.Context, _, lang string) transcript.Result {
	return transcript.Result{Result: "success", Content: "WEBVTT " + lang}
}

type testHost struct {
	srv   *httptest.Server
	media *stubMedia
}

func newTestHost(t *testing.T, cfg config.Config) *testHost {
	t.Helper()
	log := zap.NewNop().Sugar()
	renderer, err := NewRenderer(block.Templates)
	require.NoError(t, err)
	_, rdb := newRedis(t)
	h := &testHost{media: &stubMedia{}}
	b := block.New(block.Deps{
		Runtime: NewRuntime(renderer, NewRedisEventBus(rdb)),
		Store:   NewMemoryFieldStore(seeds),
		Videos: catalog.NewMemory([]config.VideoSeed{{
			VideoID: "vid-1", ClientVideoID: "v.mp4", Status: catalog.StatusFileComplete, Courses: []string{"course-v1:edX+DemoX+2024"},
		}}),
		Settings:    tenants.NewMemoryProvider(log, []config.OrgSeed{{Organization: "edX", AzureSettings: config.AzureSettings{ClientID: "c", ClientSecret: "s", Tenant: "t", RESTAPIEndpoint: "https://ams/api/"}}}),
		Media:       func(tenants.Credentials) (block.MediaService, error) { return *h.media, nil },
		Transcripts: stubTranscripts{},
		Languages:   assets.NewLanguageTable([]string{"en"}),
		Log:         log,
	})
	r, err := NewRouter(cfg, log, b)
	require.NoError(t, err)
	h.srv = httptest.NewServer(r)
	t.Cleanup(h.srv.Close)
	return h
}

func (h *testHost) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func devConfig() config.Config { return config.Config{Env: "dev"} }

func TestOperationalRoutes(t *testing.T) {
	h := newTestHost(t, devConfig())

	resp, body := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	resp, body = h.do(t, http.MethodGet, "/.well-known/openapi.json", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/blocks/{usageID}/handler/get_captions_and_video_info")

	resp, body = h.do(t, http.MethodGet, "/static/js/player.js", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "function AzureMediaServicesBlock")

	resp, _ = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStudentViewRoute(t *testing.T) {
	h := newTestHost(t, devConfig())

	resp, body := h.do(t, http.MethodGet, "/blocks/"+usage+"/student_view", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var frag struct {
		Content   string           `json:"content"`
		Resources []block.Resource `json:"resources"`
		JSInitFn  string           `json:"js_init_fn"`
	}
	require.NoError(t, json.Unmarshal(body, &frag))
	assert.Equal(t, "AzureMediaServicesBlock", frag.JSInitFn)
	assert.Contains(t, frag.Content, "Intro")
	assert.NotEmpty(t, frag.Resources)

	resp, body = h.do(t, http.MethodGet, "/blocks/unknown/student_view", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	var p problems.Problem
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, problems.Type("block-not-found"), p.Type)
}

func TestHandlerRoutes(t *testing.T) {
	h := newTestHost(t, devConfig())
	base := "/blocks/" + usage + "/handler/"

	resp, body := h.do(t, http.MethodPost, base+"publish_event", "", map[string]any{"event_type": "edx.video.played"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"result":"success"}`, string(body))

	resp, body = h.do(t, http.MethodPost, base+"get_captions_and_video_info", "", map[string]any{"video_id": "vid-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"error_message":"",
		"video_info":{"smooth_streaming_url":"//ma.host/loc/v.ism/manifest","download_video_url":"//sa.blob/asset-1/v_1.mp4?sv=1"},
		"captions":[]}`, string(body))

	resp, body = h.do(t, http.MethodPost, base+"fetch_transcript", "", map[string]any{"srcUrl": "//sa/en.vtt", "srcLang": "en"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"result":"success","content":"WEBVTT en"}`, string(body))

	resp, _ = h.do(t, http.MethodPost, base+"nope", "", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, base+"submit_studio_edits", "", map[string]any{"values": map[string]any{"protection_type": "DRM"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var p problems.Problem
	require.NoError(t, json.Unmarshal(body, &p))
	assert.NotEmpty(t, p.Errors)
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	h := newTestHost(t, devConfig())
	h.media.err = &mediaservices.StatusError{Op: "assets", StatusCode: 500}

	resp, body := h.do(t, http.MethodPost, "/blocks/"+usage+"/handler/get_captions_and_video_info", "", map[string]any{"video_id": "vid-1"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "upstream-failure")
}

func TestTranscriptRateLimit(t *testing.T) {
	cfg := devConfig()
	cfg.TranscriptRPM = 1
	h := newTestHost(t, cfg)
	path := "/blocks/" + usage + "/handler/fetch_transcript"

	resp, _ := h.do(t, http.MethodPost, path, "", map[string]any{"srcUrl": "//a", "srcLang": "en"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(t, http.MethodPost, path, "", map[string]any{"srcUrl": "//a", "srcLang": "en"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// other handlers are not limited
	resp, _ = h.do(t, http.MethodPost, "/blocks/"+usage+"/handler/publish_event", "", map[string]any{"event_type": "x"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type issuer struct {
	key  jwk.Key
	jwks *httptest.Server
}

func newIssuer(t *testing.T) *issuer {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, "test"))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))
	pub, err := jwk.PublicKeyOf(key)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256))
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return &issuer{key: key, jwks: srv}
}

func (i *issuer) token(t *testing.T, sub string, scopes ...string) string {
	t.Helper()
	tok, err := jwt.NewBuilder().
		Issuer("https://lms.example.org").
		Audience([]string{"ams-player"}).
		Subject(sub).
		Expiration(time.Now().Add(time.Hour)).
		Claim("scope", strings.Join(scopes, " ")).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, i.key))
	require.NoError(t, err)
	return string(signed)
}

func TestAuthAndStudioScope(t *testing.T) {
	iss := newIssuer(t)
	h := newTestHost(t, config.Config{Env: "prod", Issuer: "https://lms.example.org/", Audience: "ams-player", JWKSURL: iss.jwks.URL})
	studio := "/blocks/" + usage + "/studio_view"
	info := "/blocks/" + usage + "/handler/get_captions_and_video_info"

	resp, _ := h.do(t, http.MethodGet, studio, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, studio, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	learner := iss.token(t, "learner-1")
	resp, _ = h.do(t, http.MethodGet, "/blocks/"+usage+"/student_view", learner, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, studio, learner, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = h.do(t, http.MethodPost, info, learner, map[string]any{"video_id": "vid-1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	author := iss.token(t, "author-1", "openid", ScopeStudio)
	resp, body := h.do(t, http.MethodGet, studio, author, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "StudioEditableXBlockMixin")
	resp, _ = h.do(t, http.MethodPost, info, author, map[string]any{"video_id": "vid-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
