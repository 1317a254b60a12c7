package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const segmentColumns = `id, target_id, title, started_at, file_path, caption_path, created_at`

// SaveSegment persists one downloaded part and assigns its database id.
func (s *Store) SaveSegment(ctx context.Context, segment *Segment) error {
	if segment == nil {
		return errors.New("segment required")
	}
	if segment.TargetID == 0 {
		return errors.New("segment target id required")
	}
	if segment.FilePath == "" {
		return errors.New("segment file path required")
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO segments (target_id, title, started_at, file_path, caption_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		segment.TargetID, segment.Title, timestamp(segment.StartedAt),
		segment.FilePath, segment.CaptionPath, timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("segment insert id: %w", err)
	}
	segment.ID = id
	return nil
}

// SegmentsForTarget returns the stored parts for one target, newest first.
// A limit of 0 returns everything.
func (s *Store) SegmentsForTarget(ctx context.Context, targetID int64, limit int) ([]*Segment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segments WHERE target_id = ? ORDER BY id DESC`
	args := []any{targetID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segments []*Segment
	for rows.Next() {
		var (
			segment          Segment
			started, created string
		)
		if err := rows.Scan(
			&segment.ID, &segment.TargetID, &segment.Title,
			&started, &segment.FilePath, &segment.CaptionPath, &created,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segment.StartedAt = parseTimestamp(started)
		segment.CreatedAt = parseTimestamp(created)
		segments = append(segments, &segment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}
	return segments, nil
}

// CountSegments reports how many parts are stored for one target.
func (s *Store) CountSegments(ctx context.Context, targetID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM segments WHERE target_id = ?`, targetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count segments: %w", err)
	}
	return count, nil
}
