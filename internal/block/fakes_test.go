package block

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"amsplayer/internal/assets"
	"amsplayer/internal/catalog"
	"amsplayer/internal/mediaservices"
	"amsplayer/pkg/config"
	"amsplayer/pkg/tenants"
)

const (
	usageID = "block-v1:edX+DemoX+2024+type@azure_media_services+block@intro"
	videoID = "0c8a9f3e-video"
)

type published struct {
	ids       ScopeIDs
	eventType string
	payload   map[string]any
}

type fakeRuntime struct {
	tmpl     *template.Template
	rendered []string
	data     []any
	events   []published
	pubErr   error
}

func newFakeRuntime(t *testing.T) *fakeRuntime {
	t.Helper()
	tmpl, err := template.New("").Funcs(TemplateFuncs).ParseFS(Templates, "templates/*.html")
	require.NoError(t, err)
	return &fakeRuntime{tmpl: tmpl}
}

func (r *fakeRuntime) Render(name string, data any) (string, error) {
	r.rendered = append(r.rendered, name)
	r.data = append(r.data, data)
	var buf bytes.Buffer
	err := r.tmpl.ExecuteTemplate(&buf, name, data)
	return buf.String(), err
}

func (r *fakeRuntime) Publish(_ context.Context, ids ScopeIDs, eventType string, payload map[string]any) error {
	if r.pubErr != nil {
		return r.pubErr
	}
	r.events = append(r.events, published{ids, eventType, payload})
	return nil
}

type fakeStore struct {
	mu   sync.Mutex
	recs map[string]Record
}

func newFakeStore(recs ...Record) *fakeStore {
	s := &fakeStore{recs: map[string]Record{}}
	for _, r := range recs {
		s.recs[r.UsageID] = r
	}
	return s
}

func (s *fakeStore) Load(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return Record{}, ErrBlockNotFound
	}
	return r, nil
}

func (s *fakeStore) Save(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[r.UsageID] = r
	return nil
}

type fakeMedia struct {
	asset    *mediaservices.Asset
	onDemand *mediaservices.Locator
	sas      *mediaservices.Locator
	files    []mediaservices.AssetFile
	err      error
	calls    []string
}

func (m *fakeMedia) GetInputAssetByVideoID(_ context.Context, id string, kind mediaservices.AssetKind) (*mediaservices.Asset, error) {
	m.calls = append(m.calls, "asset:"+id+":"+string(kind))
	return m.asset, m.err
}

func (m *fakeMedia) GetAssetLocator(_ context.Context, assetID string, t mediaservices.LocatorType) (*mediaservices.Locator, error) {
	m.calls = append(m.calls, "locator:"+assetID+":"+t.String())
	if t == mediaservices.LocatorOnDemandOrigin {
		return m.onDemand, nil
	}
	return m.sas, nil
}

func (m *fakeMedia) GetAssetFiles(_ context.Context, assetID string) ([]mediaservices.AssetFile, error) {
	m.calls = append(m.calls, "files:"+assetID)
	return m.files, nil
}

var orgCreds = config.AzureSettings{
	ClientID: "client", ClientSecret: "secret", Tenant: "contoso.onmicrosoft.com",
	RESTAPIEndpoint: "https://acct.restv2.westeurope.media.azure.net/api/",
}

type harness struct {
	block   *Block
	runtime *fakeRuntime
	store   *fakeStore
	media   *fakeMedia
	creds   []tenants.Credentials
}

func newHarness(t *testing.T, orgs []config.OrgSeed, fields map[string]any) *harness {
	t.Helper()
	h := &harness{
		runtime: newFakeRuntime(t),
		store:   newFakeStore(Record{UsageID: usageID, Org: "edX", CourseID: "course-v1:edX+DemoX+2024", Fields: fields}),
		media: &fakeMedia{
			asset:    &mediaservices.Asset{ID: "nb:cid:UUID:enc", Name: "intro.mp4::ENCODED"},
			onDemand: &mediaservices.Locator{Type: mediaservices.LocatorOnDemandOrigin, Path: "https://ma.streaming.mediaservices.windows.net/locator_id/"},
			sas:      &mediaservices.Locator{Type: mediaservices.LocatorSAS, Path: "https://sa.blob.core.windows.net/asset-locator_id?sv=2012-02-12&sr=c"},
			files: []mediaservices.AssetFile{
				{Name: "fileNameIsm.ism", MimeType: "application/octet-stream", SizeBytes: 10},
				{Name: "fileName_1.mp4", MimeType: "video/mp4", SizeBytes: 10},
				{Name: "fileName_2.mp4", MimeType: "video/mp4", SizeBytes: 20},
			},
		},
	}
	videos := catalog.NewMemory([]config.VideoSeed{
		{VideoID: videoID, ClientVideoID: "video_name.mp4", Status: catalog.StatusFileComplete,
			Created: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Courses: []string{"course-v1:edX+DemoX+2024"},
			Subtitles: []config.SubtitleSeed{{Language: "en", FileName: "file_name_en.vtt"}}},
		{VideoID: "older", ClientVideoID: "older.mp4", Status: catalog.StatusFileEncrypted,
			Created: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Courses: []string{"course-v1:edX+DemoX+2024"}},
		{VideoID: "uploading", ClientVideoID: "up.mp4", Status: "upload",
			Created: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Courses: []string{"course-v1:edX+DemoX+2024"}},
	})
	log := zap.NewNop().Sugar()
	h.block = New(Deps{
		Runtime:  h.runtime,
		Store:    h.store,
		Videos:   videos,
		Settings: tenants.NewMemoryProvider(log, orgs),
		Media: func(c tenants.Credentials) (MediaService, error) {
			h.creds = append(h.creds, c)
			return h.media, nil
		},
		Transcripts: stubTranscripts{},
		Languages:   assets.NewLanguageTable([]string{"en", "fr"}),
		Log:         log,
	})
	return h
}

func configuredOrg() []config.OrgSeed {
	return []config.OrgSeed{{Organization: "edX", AzureSettings: orgCreds}}
}

var errBus = errors.New("bus down")
