// Package block is the Azure Media Services video player: its views, its
// JSON handlers and the host capabilities it depends on.
package block

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"amsplayer/internal/assets"
	"amsplayer/internal/metrics"
	"amsplayer/internal/transcript"
	"amsplayer/pkg/tenants"
)

var (
	ErrUnknownHandler = errors.New("unknown handler")
	ErrBadPayload     = errors.New("invalid JSON payload")
	ErrUpstream       = errors.New("media services request failed")
)

// ValidationError rejects a studio edit.
type ValidationError struct{ Messages []string }

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid fields: %v", e.Messages) }

// Transcripts fetches caption text on behalf of the browser.
type Transcripts interface {
	Fetch(ctx context.Context, src, lang string) transcript.Result
}

type Deps struct {
	Runtime     Runtime
	Store       FieldStore
	Videos      VideoCatalog
	Settings    tenants.Provider
	Platform    tenants.Credentials
	Media       MediaFactory
	Transcripts Transcripts
	Languages   assets.LanguageTable
	Log         *zap.SugaredLogger

	// PlayerVersion pins the Azure Media Player build loaded from the CDN.
	PlayerVersion string
	// StaticURL prefixes the block's own JS and CSS, e.g. "/static/".
	StaticURL string
}

type Block struct {
	d   Deps
	now func() time.Time
}

func New(d Deps) *Block {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.PlayerVersion == "" {
		d.PlayerVersion = "2.3.11"
	}
	if d.StaticURL == "" {
		d.StaticURL = "/static/"
	}
	return &Block{d: d, now: time.Now}
}

func (b *Block) load(ctx context.Context, usageID string) (Record, Fields, error) {
	rec, err := b.d.Store.Load(ctx, usageID)
	if err != nil {
		return Record{}, Fields{}, err
	}
	f, err := decodeFields(rec.Fields)
	if err != nil {
		b.d.Log.Warnw("stored fields unreadable; using defaults", "usage_id", usageID, "error", err)
	}
	return rec, f, nil
}

func (b *Block) credentials(ctx context.Context, org string) (tenants.Credentials, bool) {
	return tenants.ResolveCredentials(ctx, b.d.Log, b.d.Settings, org, b.d.Platform)
}

type studentContext struct {
	DisplayName        string
	VideoURL           string
	ProtectionType     string
	PlayerDOMID        string
	AuthToken          string
	Captions           []assets.Caption
	TranscriptsEnabled bool
	DownloadURL        string
}

// browserCaptions copies captions with scheme-relative download URLs.
func browserCaptions(in []assets.Caption) []assets.Caption {
	out := make([]assets.Caption, len(in))
	for i, c := range in {
		c.DownloadURL = assets.DropScheme(c.DownloadURL)
		out[i] = c
	}
	return out
}

// StudentView renders the player.
func (b *Block) StudentView(ctx context.Context, ids ScopeIDs) (*Fragment, error) {
	_, f, err := b.load(ctx, ids.UsageID)
	if err != nil {
		return nil, err
	}
	data := studentContext{
		DisplayName:        f.DisplayName,
		VideoURL:           assets.DropScheme(f.VideoURL),
		ProtectionType:     f.ProtectionType,
		PlayerDOMID:        playerDOMID(),
		Captions:           browserCaptions(f.Captions),
		TranscriptsEnabled: f.TranscriptsEnabled,
	}
	if f.DownloadURL != nil {
		data.DownloadURL = assets.DropScheme(*f.DownloadURL)
	}
	if f.ProtectionType != ProtectionNone {
		tok, err := protectionToken(f, b.now())
		if err != nil {
			// the player still loads; the license request will be refused
			b.d.Log.Warnw("protection token not issued", "usage_id", ids.UsageID, "error", err)
		}
		data.AuthToken = tok
	}
	html, err := b.d.Runtime.Render("player.html", data)
	if err != nil {
		return nil, fmt.Errorf("render player: %w", err)
	}
	frag := &Fragment{}
	frag.AddContent(html)
	amp := "//amp.azure.net/libs/amp/" + b.d.PlayerVersion
	frag.AddCSSURL(amp + "/skins/amp-default/azuremediaplayer.min.css")
	frag.AddJSURL(amp + "/azuremediaplayer.min.js")
	frag.AddCSSURL(b.d.StaticURL + "css/player.css")
	frag.AddJSURL(b.d.StaticURL + "js/player.js")
	frag.InitializeJS("AzureMediaServicesBlock")
	metrics.ViewsRendered.WithLabelValues("student").Inc()
	return frag, nil
}

type studioContext struct {
	HasAzureConfig   bool          `json:"has_azure_config"`
	ListStreamVideos []streamVideo `json:"list_stream_videos"`
	Fields           []FieldInfo   `json:"fields"`
}

type streamVideo struct {
	VideoID       string `json:"video_id"`
	ClientVideoID string `json:"client_video_id"`
	Created       string `json:"created"`
}

// StudioView renders the authoring form. Stream videos are listed only when
// the block's organization has Media Services credentials.
func (b *Block) StudioView(ctx context.Context, ids ScopeIDs) (*Fragment, error) {
	rec, f, err := b.load(ctx, ids.UsageID)
	if err != nil {
		return nil, err
	}
	data := studioContext{ListStreamVideos: []streamVideo{}, Fields: fieldInfos(rec, f)}
	if _, ok := b.credentials(ctx, rec.Org); ok {
		data.HasAzureConfig = true
		videos, err := b.d.Videos.ListStreamVideos(ctx, rec.CourseID)
		if err != nil {
			return nil, fmt.Errorf("list stream videos: %w", err)
		}
		for _, v := range videos {
			data.ListStreamVideos = append(data.ListStreamVideos, streamVideo{
				VideoID: v.ID, ClientVideoID: v.ClientVideoID, Created: v.Created.Format(time.RFC3339),
			})
		}
	}
	html, err := b.d.Runtime.Render("studio_edit.html", data)
	if err != nil {
		return nil, fmt.Errorf("render studio: %w", err)
	}
	frag := &Fragment{}
	frag.AddContent(html)
	frag.AddJSURL(b.d.StaticURL + "js/studio_edit.js")
	frag.AddCSSURL(b.d.StaticURL + "css/studio.css")
	frag.InitializeJS("StudioEditableXBlockMixin")
	metrics.ViewsRendered.WithLabelValues("studio").Inc()
	return frag, nil
}
