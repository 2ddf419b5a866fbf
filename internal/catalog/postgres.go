package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"amsplayer/pkg/config"
	"amsplayer/pkg/db"
)

type pgCatalog struct {
	dbPool *pgxpool.Pool
}

func NewPostgres(dbPool *pgxpool.Pool) Catalog {
	return &pgCatalog{dbPool: dbPool}
}

// EnsureSchema creates the catalog tables. Safe to call repeatedly.
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS videos (
  video_id text PRIMARY KEY,
  client_video_id text NOT NULL,
  status text NOT NULL,
  created timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS course_videos (
  course_id text NOT NULL,
  video_id text NOT NULL REFERENCES videos(video_id) ON DELETE CASCADE,
  is_hidden boolean NOT NULL DEFAULT false,
  PRIMARY KEY (course_id, video_id)
);
CREATE TABLE IF NOT EXISTS video_subtitles (
  id BIGSERIAL PRIMARY KEY,
  video_id text NOT NULL REFERENCES videos(video_id) ON DELETE CASCADE,
  language text NOT NULL,
  file_name text NOT NULL
);
`)
	return err
}

func (c *pgCatalog) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	var v Video
	err := c.dbPool.QueryRow(ctx, `SELECT video_id, client_video_id, status, created FROM videos WHERE video_id=$1`, videoID).
		Scan(&v.ID, &v.ClientVideoID, &v.Status, &v.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// insertion order
	rows, err := c.dbPool.Query(ctx, `SELECT language, file_name FROM video_subtitles WHERE video_id=$1 ORDER BY id`, videoID)
	if err != nil {
		return nil, fmt.Errorf("load subtitles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s Subtitle
		if err := rows.Scan(&s.Language, &s.FileName); err != nil {
			return nil, err
		}
		v.Subtitles = append(v.Subtitles, s)
	}
	return &v, rows.Err()
}

func (c *pgCatalog) ListStreamVideos(ctx context.Context, courseID string) ([]Video, error) {
	rows, err := c.dbPool.Query(ctx, `
		SELECT v.video_id, v.client_video_id, v.status, v.created
		FROM videos v JOIN course_videos cv ON cv.video_id = v.video_id
		WHERE cv.course_id=$1 AND cv.is_hidden=false AND v.status = ANY($2)
		ORDER BY v.created DESC, v.video_id`, courseID, []string{StatusFileComplete, StatusFileEncrypted})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Video{}
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.ClientVideoID, &v.Status, &v.Created); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Import upserts seeded videos, their course links and subtitles. A video's
// subtitles are replaced wholesale so a re-import keeps their order.
func Import(ctx context.Context, dbPool *pgxpool.Pool, videos []config.VideoSeed) error {
	if len(videos) == 0 {
		return nil
	}
	return db.InTx(ctx, dbPool, func(tx pgx.Tx) error {
		for _, v := range videos {
			created := v.Created
			if created.IsZero() {
				created = time.Now()
			}
			if _, err := tx.Exec(ctx, `INSERT INTO videos(video_id, client_video_id, status, created)
				VALUES ($1,$2,$3,$4)
				ON CONFLICT (video_id) DO UPDATE SET client_video_id=EXCLUDED.client_video_id, status=EXCLUDED.status`,
				v.VideoID, v.ClientVideoID, v.Status, created); err != nil {
				return fmt.Errorf("import video %s: %w", v.VideoID, err)
			}
			for _, course := range v.Courses {
				if _, err := tx.Exec(ctx, `INSERT INTO course_videos(course_id, video_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
					course, v.VideoID); err != nil {
					return fmt.Errorf("link video %s to %s: %w", v.VideoID, course, err)
				}
			}
			if _, err := tx.Exec(ctx, `DELETE FROM video_subtitles WHERE video_id=$1`, v.VideoID); err != nil {
				return err
			}
			for _, sub := range v.Subtitles {
				if _, err := tx.Exec(ctx, `INSERT INTO video_subtitles(video_id, language, file_name) VALUES ($1,$2,$3)`,
					v.VideoID, sub.Language, sub.FileName); err != nil {
					return fmt.Errorf("import subtitle %s/%s: %w", v.VideoID, sub.Language, err)
				}
			}
		}
		return nil
	})
}
