// Package catalog is the video reference store: the opaque video id, the
// uploader's filename and the subtitle files attached to it.
package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("video not found")

// Statuses that mark a video as playable through Media Services.
const (
	StatusFileComplete  = "file_complete"
	StatusFileEncrypted = "file_encrypted"
)

type Subtitle struct {
	Language string `json:"language"`
	FileName string `json:"file_name"`
}

type Video struct {
	ID            string     `json:"video_id"`
	ClientVideoID string     `json:"client_video_id"`
	Status        string     `json:"status"`
	Created       time.Time  `json:"created"`
	Subtitles     []Subtitle `json:"-"`
}

type Catalog interface {
	GetVideo(ctx context.Context, videoID string) (*Video, error)
	// Playable videos visible in the course, newest first then by id.
	ListStreamVideos(ctx context.Context, courseID string) ([]Video, error)
}

func streamable(status string) bool {
	return status == StatusFileComplete || status == StatusFileEncrypted
}
