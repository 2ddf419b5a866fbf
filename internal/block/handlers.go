package block

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"amsplayer/internal/assets"
	"amsplayer/internal/catalog"
	"amsplayer/internal/mediaservices"
	"amsplayer/internal/metrics"
)

const (
	msgVideoUnavailable = "Target Video is no longer available on Azure or is corrupted in some way."
	msgNotConfigured    = "Azure Media Services is not configured for this organization."
	msgPublishSAS       = "To be able to use captions/transcripts auto-fetching, AMS Asset should be published properly " +
		"(in addition to 'streaming' locator a 'progressive' locator must be created as well)."
)

// Result is the {result, message} envelope shared by the simple handlers.
type Result struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

func ok() Result                    { return Result{Result: "success"} }
func errorResult(msg string) Result { return Result{Result: "error", Message: msg} }
func missing(key string) Result     { return errorResult(fmt.Sprintf("Missing %s in JSON data", key)) }

// CaptionsAndVideoInfo answers get_captions_and_video_info. VideoInfo is an
// empty object when the video cannot be played.
type CaptionsAndVideoInfo struct {
	ErrorMessage string           `json:"error_message"`
	VideoInfo    any              `json:"video_info"`
	Captions     []assets.Caption `json:"captions"`
}

func unavailable(msg string) CaptionsAndVideoInfo {
	return CaptionsAndVideoInfo{ErrorMessage: msg, VideoInfo: struct{}{}, Captions: []assets.Caption{}}
}

// Handlers lists the JSON handlers in dispatch order.
var Handlers = []string{"publish_event", "get_captions_and_video_info", "fetch_transcript", "submit_studio_edits"}

// Handle dispatches a JSON handler call for one block instance.
func (b *Block) Handle(ctx context.Context, ids ScopeIDs, handler string, body []byte) (any, error) {
	var fn func(context.Context, ScopeIDs, Record, Fields, map[string]any) (any, error)
	switch handler {
	case "publish_event":
		fn = b.publishEvent
	case "get_captions_and_video_info":
		fn = b.getCaptionsAndVideoInfo
	case "fetch_transcript":
		fn = b.fetchTranscript
	case "submit_studio_edits":
		fn = b.submitStudioEdits
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandler, handler)
	}
	data := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &data); err != nil || data == nil {
			return nil, ErrBadPayload
		}
	}
	rec, f, err := b.load(ctx, ids.UsageID)
	if err != nil {
		return nil, err
	}
	res, err := fn(ctx, ids, rec, f, data)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else if r, isResult := res.(Result); isResult && r.Result == "error" {
		outcome = "rejected"
	}
	metrics.HandlerRequests.WithLabelValues(handler, outcome).Inc()
	return res, err
}

func (b *Block) publishEvent(ctx context.Context, ids ScopeIDs, _ Record, f Fields, data map[string]any) (any, error) {
	raw, present := data["event_type"]
	if !present || raw == nil {
		return missing("event_type"), nil
	}
	eventType := fmt.Sprint(raw)
	delete(data, "event_type")
	data["video_url"] = f.VideoURL
	data["user_id"] = ids.UserID
	if err := b.d.Runtime.Publish(ctx, ids, eventType, data); err != nil {
		return nil, fmt.Errorf("publish %s: %w", eventType, err)
	}
	return ok(), nil
}

func (b *Block) getCaptionsAndVideoInfo(ctx context.Context, _ ScopeIDs, rec Record, _ Fields, data map[string]any) (any, error) {
	videoID, _ := data["video_id"].(string)
	if videoID == "" {
		// older studio editors post the catalog key
		videoID, _ = data["edx_video_id"].(string)
	}
	if videoID == "" {
		return missing("video_id"), nil
	}
	return b.VideoInfo(ctx, rec.Org, videoID)
}

// VideoInfo resolves streaming, download and caption URLs for a catalog video.
func (b *Block) VideoInfo(ctx context.Context, org, videoID string) (CaptionsAndVideoInfo, error) {
	video, err := b.d.Videos.GetVideo(ctx, videoID)
	if errors.Is(err, catalog.ErrNotFound) {
		return unavailable(msgVideoUnavailable), nil
	}
	if err != nil {
		return CaptionsAndVideoInfo{}, fmt.Errorf("video %s: %w", videoID, err)
	}
	creds, found := b.credentials(ctx, org)
	if !found {
		return unavailable(msgNotConfigured), nil
	}
	ms, err := b.d.Media(creds)
	if err != nil {
		return CaptionsAndVideoInfo{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	asset, err := ms.GetInputAssetByVideoID(ctx, videoID, mediaservices.AssetEncoded)
	if err != nil {
		return CaptionsAndVideoInfo{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if asset == nil {
		return unavailable(msgVideoUnavailable), nil
	}
	onDemand, err := ms.GetAssetLocator(ctx, asset.ID, mediaservices.LocatorOnDemandOrigin)
	if err != nil {
		return CaptionsAndVideoInfo{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	sas, err := ms.GetAssetLocator(ctx, asset.ID, mediaservices.LocatorSAS)
	if err != nil {
		return CaptionsAndVideoInfo{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	switch {
	case onDemand == nil:
		return unavailable(msgVideoUnavailable), nil
	case sas == nil:
		return CaptionsAndVideoInfo{
			ErrorMessage: msgPublishSAS,
			VideoInfo:    assets.ResolveVideoInfo(*video, onDemand.Path, "", nil),
			Captions:     []assets.Caption{},
		}, nil
	}
	files, err := ms.GetAssetFiles(ctx, asset.ID)
	if err != nil {
		return CaptionsAndVideoInfo{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return CaptionsAndVideoInfo{
		VideoInfo: assets.ResolveVideoInfo(*video, onDemand.Path, sas.Path, files),
		Captions:  assets.ResolveCaptions(*video, sas.Path, b.d.Languages),
	}, nil
}

func (b *Block) fetchTranscript(ctx context.Context, _ ScopeIDs, _ Record, _ Fields, data map[string]any) (any, error) {
	src, _ := data["srcUrl"].(string)
	lang, _ := data["srcLang"].(string)
	if src == "" {
		return missing("srcUrl"), nil
	}
	return b.d.Transcripts.Fetch(ctx, src, lang), nil
}

type studioEdits struct {
	Values   map[string]json.RawMessage `json:"values"`
	Defaults []string                   `json:"defaults"`
}

// submitStudioEdits applies values, resets the fields named in defaults and
// persists the result once it validates.
func (b *Block) submitStudioEdits(ctx context.Context, _ ScopeIDs, rec Record, _ Fields, data map[string]any) (any, error) {
	raw, _ := json.Marshal(data)
	var edits studioEdits
	if err := json.Unmarshal(raw, &edits); err != nil {
		return nil, ErrBadPayload
	}
	set := map[string]any{}
	for k, v := range rec.Fields {
		set[k] = v
	}
	for _, name := range edits.Defaults {
		delete(set, name)
	}
	for name, v := range edits.Values {
		if !isEditable(name) {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, ErrBadPayload
		}
		set[name] = val
	}
	f, err := decodeFields(set)
	if err != nil {
		return nil, &ValidationError{Messages: []string{err.Error()}}
	}
	if msgs := f.validate(); len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}
	rec.Fields = set
	if err := b.d.Store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save fields: %w", err)
	}
	return ok(), nil
}
