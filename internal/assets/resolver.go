// Package assets turns Media Services locator paths and file listings into
// the protocol-relative URLs handed to the player.
package assets

import (
	"path"
	"strings"

	"amsplayer/internal/catalog"
	"amsplayer/internal/mediaservices"
)

const mp4 = "video/mp4"

// VideoInfo is recomputed on every request.
type VideoInfo struct {
	SmoothStreamingURL string `json:"smooth_streaming_url"`
	DownloadVideoURL   string `json:"download_video_url"`
}

type Caption struct {
	Language      string `json:"language"`
	LanguageTitle string `json:"language_title"`
	FileName      string `json:"file_name"`
	DownloadURL   string `json:"download_url"`
}

// ResolveVideoInfo builds the streaming manifest and download URLs. An empty
// onDemandPath or sasPath yields the matching empty URL; the two are independent.
func ResolveVideoInfo(v catalog.Video, onDemandPath, sasPath string, files []mediaservices.AssetFile) VideoInfo {
	var info VideoInfo
	if onDemandPath != "" {
		base := strings.TrimRight(DropScheme(onDemandPath), "/") + "/"
		info.SmoothStreamingURL = base + manifestName(v.ClientVideoID) + "/manifest"
	}
	if sasPath != "" && len(files) > 0 {
		if f, ok := largestMP4(files); ok {
			info.DownloadVideoURL = sasURL(sasPath, f.Name)
		}
	}
	return info
}

// ResolveCaptions emits one caption per subtitle, in the video's order.
func ResolveCaptions(v catalog.Video, sasPath string, langs LanguageTable) []Caption {
	out := make([]Caption, 0, len(v.Subtitles))
	for _, s := range v.Subtitles {
		out = append(out, Caption{
			Language:      s.Language,
			LanguageTitle: langs.Title(s.Language),
			FileName:      s.FileName,
			DownloadURL:   sasURL(sasPath, s.FileName),
		})
	}
	return out
}

// DropScheme strips one leading "https:" or "http:", leaving "//host/...".
func DropScheme(u string) string {
	if rest, ok := strings.CutPrefix(u, "https:"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(u, "http:"); ok {
		return rest
	}
	return u
}

// largestMP4 keeps the first file seen among equal sizes.
func largestMP4(files []mediaservices.AssetFile) (mediaservices.AssetFile, bool) {
	var best mediaservices.AssetFile
	found := false
	for _, f := range files {
		if f.MimeType != mp4 {
			continue
		}
		if !found || f.SizeBytes > best.SizeBytes {
			best, found = f, true
		}
	}
	return best, found
}

// sasURL inserts name between the SAS container path and its signature query.
func sasURL(sasPath, name string) string {
	if sasPath == "" {
		return ""
	}
	base, query, hasQuery := strings.Cut(DropScheme(sasPath), "?")
	u := strings.TrimRight(base, "/") + "/" + name
	if hasQuery {
		u += "?" + query
	}
	return u
}

func manifestName(clientVideoID string) string {
	return strings.TrimSuffix(clientVideoID, path.Ext(clientVideoID)) + ".ism"
}
