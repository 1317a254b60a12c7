package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"streamcap/internal/services"
)

const targetColumns = `id, url, name, platform, activated, is_live, title, avatar_url,
	output_dir, on_part_json, on_finish_json, created_at, updated_at`

// Upsert inserts the target or, when its URL already exists, updates the
// stored configuration in place. The target's ID field is populated with the
// persisted row id on return. is_live is written as supplied so identity
// preservation is the caller's responsibility (the reconciler copies it from
// the prior record before upserting).
func (s *Store) Upsert(ctx context.Context, target *Target) error {
	if target == nil {
		return errors.New("target required")
	}
	if target.URL == "" {
		return errors.New("target url required")
	}

	onPart, err := marshalActions(target.OnPart)
	if err != nil {
		return fmt.Errorf("marshal on_part actions: %w", err)
	}
	onFinish, err := marshalActions(target.OnFinish)
	if err != nil {
		return fmt.Errorf("marshal on_finish actions: %w", err)
	}

	now := timestamp(time.Now())
	_, err = s.execWithRetry(ctx,
		`INSERT INTO targets (
			url, name, platform, activated, is_live, title, avatar_url,
			output_dir, on_part_json, on_finish_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			platform = excluded.platform,
			activated = excluded.activated,
			is_live = excluded.is_live,
			title = excluded.title,
			avatar_url = excluded.avatar_url,
			output_dir = excluded.output_dir,
			on_part_json = excluded.on_part_json,
			on_finish_json = excluded.on_finish_json,
			updated_at = excluded.updated_at`,
		target.URL, target.Name, target.Platform, boolToInt(target.Activated),
		boolToInt(target.IsLive), target.Title, target.AvatarURL,
		target.OutputDir, onPart, onFinish, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert target: %w", err)
	}

	stored, err := s.FindByURL(ctx, target.URL)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("target %q vanished after upsert", target.URL)
	}
	target.ID = stored.ID
	target.CreatedAt = stored.CreatedAt
	target.UpdatedAt = stored.UpdatedAt
	return nil
}

// FindByURL fetches one target by its natural key. Returns nil when absent.
func (s *Store) FindByURL(ctx context.Context, url string) (*Target, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+targetColumns+` FROM targets WHERE url = ?`, url)
	target, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find target by url: %w", err)
	}
	return target, nil
}

// GetTarget fetches one target by row id. Returns nil when absent.
func (s *Store) GetTarget(ctx context.Context, id int64) (*Target, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+targetColumns+` FROM targets WHERE id = ?`, id)
	target, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	return target, nil
}

// ListTargets returns every persisted target ordered by name.
func (s *Store) ListTargets(ctx context.Context) ([]*Target, error) {
	return s.listTargets(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY name, url`)
}

// ListActivated returns the targets that should be supervised at startup.
func (s *Store) ListActivated(ctx context.Context) ([]*Target, error) {
	return s.listTargets(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE activated = 1 ORDER BY name, url`)
}

func (s *Store) listTargets(ctx context.Context, query string) ([]*Target, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []*Target
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate targets: %w", err)
	}
	return targets, nil
}

// DeleteTarget removes a persisted target and, via cascade, its segments.
func (s *Store) DeleteTarget(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete target rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", fmt.Sprintf("delete target %d", id), nil)
	}
	return nil
}

// UpdateLiveStatus persists the live flag and, when live, the observed title.
func (s *Store) UpdateLiveStatus(ctx context.Context, id int64, live bool, title string) error {
	query := `UPDATE targets SET is_live = ?, updated_at = ? WHERE id = ?`
	args := []any{boolToInt(live), timestamp(time.Now()), id}
	if live && title != "" {
		query = `UPDATE targets SET is_live = ?, title = ?, updated_at = ? WHERE id = ?`
		args = []any{boolToInt(live), title, timestamp(time.Now()), id}
	}
	if _, err := s.execWithRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("update live status: %w", err)
	}
	return nil
}

// ResetLiveStatuses clears every persisted live flag and reports how many
// rows changed. A supervisor cancelled mid-recording does no further
// persistence, so any flag still set when a new process starts is stale.
func (s *Store) ResetLiveStatuses(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE targets SET is_live = 0, updated_at = ? WHERE is_live = 1`,
		timestamp(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("reset live statuses: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset live statuses rows affected: %w", err)
	}
	return affected, nil
}

// UpdateAvatar persists a refreshed avatar URL.
func (s *Store) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE targets SET avatar_url = ?, updated_at = ? WHERE id = ?`,
		avatarURL, timestamp(time.Now()), id,
	); err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (*Target, error) {
	var (
		target            Target
		activated, isLive int
		onPart, onFinish  string
		created, updated  string
	)
	if err := row.Scan(
		&target.ID, &target.URL, &target.Name, &target.Platform,
		&activated, &isLive, &target.Title, &target.AvatarURL,
		&target.OutputDir, &onPart, &onFinish, &created, &updated,
	); err != nil {
		return nil, err
	}
	target.Activated = activated != 0
	target.IsLive = isLive != 0
	target.CreatedAt = parseTimestamp(created)
	target.UpdatedAt = parseTimestamp(updated)

	var err error
	if target.OnPart, err = unmarshalActions(onPart); err != nil {
		return nil, fmt.Errorf("decode on_part actions: %w", err)
	}
	if target.OnFinish, err = unmarshalActions(onFinish); err != nil {
		return nil, fmt.Errorf("decode on_finish actions: %w", err)
	}
	return &target, nil
}

func marshalActions(actions []Action) (string, error) {
	if len(actions) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalActions(data string) ([]Action, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var actions []Action
	if err := json.Unmarshal([]byte(data), &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
