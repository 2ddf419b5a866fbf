package block

import (
	"context"
	"errors"

	"amsplayer/internal/catalog"
	"amsplayer/internal/mediaservices"
	"amsplayer/pkg/tenants"
)

var ErrBlockNotFound = errors.New("block not found")

// ScopeIDs identifies who is acting on which block instance.
type ScopeIDs struct {
	UserID  string
	UsageID string
}

// Record is the persisted state of one block instance. Fields holds only
// explicitly set values; anything missing takes its default.
type Record struct {
	UsageID  string         `json:"usage_id"`
	Org      string         `json:"org"`
	CourseID string         `json:"course_id"`
	Fields   map[string]any `json:"fields"`
}

// Runtime is what the host lends the block for rendering and analytics.
type Runtime interface {
	Render(name string, data any) (string, error)
	Publish(ctx context.Context, ids ScopeIDs, eventType string, payload map[string]any) error
}

type FieldStore interface {
	Load(ctx context.Context, usageID string) (Record, error)
	Save(ctx context.Context, rec Record) error
}

type VideoCatalog interface {
	GetVideo(ctx context.Context, videoID string) (*catalog.Video, error)
	ListStreamVideos(ctx context.Context, courseID string) ([]catalog.Video, error)
}

// MediaService is the subset of the Media Services client the block calls.
type MediaService interface {
	GetInputAssetByVideoID(ctx context.Context, videoID string, kind mediaservices.AssetKind) (*mediaservices.Asset, error)
	GetAssetLocator(ctx context.Context, assetID string, t mediaservices.LocatorType) (*mediaservices.Locator, error)
	GetAssetFiles(ctx context.Context, assetID string) ([]mediaservices.AssetFile, error)
}

// MediaFactory builds a client for one organization's credentials.
type MediaFactory func(creds tenants.Credentials) (MediaService, error)
