package catalog

import (
	"context"
	"sort"
	"sync"

	"amsplayer/pkg/config"
)

type memCatalog struct {
	mu       sync.RWMutex
	videos   map[string]Video
	byCourse map[string][]string
}

// NewMemory builds a catalog from the settings seed.
func NewMemory(seed []config.VideoSeed) Catalog {
	c := &memCatalog{videos: map[string]Video{}, byCourse: map[string][]string{}}
	for _, v := range seed {
		vid := Video{ID: v.VideoID, ClientVideoID: v.ClientVideoID, Status: v.Status, Created: v.Created}
		for _, s := range v.Subtitles {
			vid.Subtitles = append(vid.Subtitles, Subtitle{Language: s.Language, FileName: s.FileName})
		}
		c.videos[v.VideoID] = vid
		for _, course := range v.Courses {
			c.byCourse[course] = append(c.byCourse[course], v.VideoID)
		}
	}
	return c
}

func (c *memCatalog) GetVideo(_ context.Context, videoID string) (*Video, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.videos[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (c *memCatalog) ListStreamVideos(_ context.Context, courseID string) ([]Video, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Video{}
	for _, id := range c.byCourse[courseID] {
		if v := c.videos[id]; streamable(v.Status) {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
