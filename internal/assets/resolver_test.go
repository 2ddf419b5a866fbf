package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"amsplayer/internal/catalog"
	"amsplayer/internal/mediaservices"
)

const (
	onDemand = "//ma.streaming.mediaservices.windows.net/locator_id/"
	sas      = "//sa.blob.core.windows.net/asset-locator_id?sv=2012-02-12&sr=c"
)

func files() []mediaservices.AssetFile {
	return []mediaservices.AssetFile{
		{Name: "fileNameIsm.ism", MimeType: "application/octet-stream", SizeBytes: 10},
		{Name: "fileName_1.mp4", MimeType: "video/mp4", SizeBytes: 10},
		{Name: "fileName_2.mp4", MimeType: "video/mp4", SizeBytes: 20},
	}
}

func TestResolveVideoInfo(t *testing.T) {
	v := catalog.Video{ClientVideoID: "video_name.mp4"}
	cases := []struct {
		name             string
		onDemand, sas    string
		files            []mediaservices.AssetFile
		stream, download string
	}{
		{"both", onDemand, sas, files(),
			"//ma.streaming.mediaservices.windows.net/locator_id/video_name.ism/manifest",
			"//sa.blob.core.windows.net/asset-locator_id/fileName_2.mp4?sv=2012-02-12&sr=c"},
		{"no on-demand", "", sas, files(),
			"", "//sa.blob.core.windows.net/asset-locator_id/fileName_2.mp4?sv=2012-02-12&sr=c"},
		{"no sas", onDemand, "", files(),
			"//ma.streaming.mediaservices.windows.net/locator_id/video_name.ism/manifest", ""},
		{"no files", onDemand, sas, nil,
			"//ma.streaming.mediaservices.windows.net/locator_id/video_name.ism/manifest", ""},
		{"schemes dropped", "https://ma.host/loc", "https://sa.blob/c?sig=1", files(),
			"//ma.host/loc/video_name.ism/manifest", "//sa.blob/c/fileName_2.mp4?sig=1"},
		{"no mp4", onDemand, sas, files()[:1],
			"//ma.streaming.mediaservices.windows.net/locator_id/video_name.ism/manifest", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveVideoInfo(v, tc.onDemand, tc.sas, tc.files)
			assert.Equal(t, tc.stream, got.SmoothStreamingURL)
			assert.Equal(t, tc.download, got.DownloadVideoURL)
		})
	}
}

func TestLargestMP4KeepsFirstOnTie(t *testing.T) {
	f := []mediaservices.AssetFile{
		{Name: "a.mp4", MimeType: "video/mp4", SizeBytes: 20},
		{Name: "b.mp4", MimeType: "video/mp4", SizeBytes: 20},
	}
	got := ResolveVideoInfo(catalog.Video{ClientVideoID: "x.mp4"}, "", "//sa/c", f)
	assert.Equal(t, "//sa/c/a.mp4", got.DownloadVideoURL)
}

func TestManifestNameWithoutExtension(t *testing.T) {
	got := ResolveVideoInfo(catalog.Video{ClientVideoID: "lecture"}, "//ma/loc", "", nil)
	assert.Equal(t, "//ma/loc/lecture.ism/manifest", got.SmoothStreamingURL)
}

func TestResolveCaptions(t *testing.T) {
	v := catalog.Video{Subtitles: []catalog.Subtitle{
		{Language: "en", FileName: "file_name_en.mp4"},
		{Language: "fr", FileName: "file_name_fr.mp4"},
		{Language: "zz-unknown", FileName: "file_name_zz.vtt"},
	}}
	got := ResolveCaptions(v, sas, NewLanguageTable([]string{"en", "fr"}))
	assert.Equal(t, []Caption{
		{Language: "en", LanguageTitle: "English", FileName: "file_name_en.mp4",
			DownloadURL: "//sa.blob.core.windows.net/asset-locator_id/file_name_en.mp4?sv=2012-02-12&sr=c"},
		{Language: "fr", LanguageTitle: "French", FileName: "file_name_fr.mp4",
			DownloadURL: "//sa.blob.core.windows.net/asset-locator_id/file_name_fr.mp4?sv=2012-02-12&sr=c"},
		{Language: "zz-unknown", LanguageTitle: "zz-unknown", FileName: "file_name_zz.vtt",
			DownloadURL: "//sa.blob.core.windows.net/asset-locator_id/file_name_zz.vtt?sv=2012-02-12&sr=c"},
	}, got)
}

func TestResolveCaptionsEmpty(t *testing.T) {
	got := ResolveCaptions(catalog.Video{}, sas, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDropScheme(t *testing.T) {
	for _, u := range []string{
		"http://ma.streaming.mediaservices.windows.net/locator_id/",
		"https://ma.streaming.mediaservices.windows.net/locator_id/",
		"//ma.streaming.mediaservices.windows.net/locator_id/",
	} {
		assert.Equal(t, "//ma.streaming.mediaservices.windows.net/locator_id/", DropScheme(u))
	}
	for _, u := range []string{"", "http:", "ftp://x", "http://h/p?q=https:", "//h/p"} {
		once := DropScheme(u)
		assert.Equal(t, once, DropScheme(once), u)
	}
	// only one literal prefix is removed
	assert.Equal(t, "http://x", DropScheme("https:http://x"))
	assert.Equal(t, "//h/p?q=https:", DropScheme("http://h/p?q=https:"))
}

func TestLanguageTableTitle(t *testing.T) {
	lt := NewLanguageTable([]string{"de", " es ", "not a tag!"})
	assert.Equal(t, "German", lt.Title("de"))
	assert.Equal(t, "Spanish", lt.Title("es"))
	assert.Equal(t, "pt", lt.Title("pt"))
	assert.Equal(t, "not a tag!", lt.Title("not a tag!"))
}
