package shots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const shotColumns = "id, number, description, visual_elements_json, duration_frames, code, video_url, status, error_message, narrative_role, narrative_connection, key_message, emotional_tone, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanShot(scanner rowScanner) (*Shot, error) {
	var (
		shot           Shot
		visualElements sql.NullString
		code           sql.NullString
		videoURL       sql.NullString
		statusStr      string
		errorMessage   sql.NullString
		role           sql.NullString
		connection     sql.NullString
		keyMessage     sql.NullString
		tone           sql.NullString
		createdRaw     string
		updatedRaw     string
	)
	if err := scanner.Scan(
		&shot.ID,
		&shot.Number,
		&shot.Description,
		&visualElements,
		&shot.DurationFrames,
		&code,
		&videoURL,
		&statusStr,
		&errorMessage,
		&role,
		&connection,
		&keyMessage,
		&tone,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	shot.Code = code.String
	shot.VideoURL = videoURL.String
	shot.Status = Status(statusStr)
	shot.Error = errorMessage.String
	shot.NarrativeRole = role.String
	shot.NarrativeConnection = connection.String
	shot.KeyMessage = keyMessage.String
	shot.EmotionalTone = tone.String
	if visualElements.Valid && visualElements.String != "" {
		if err := json.Unmarshal([]byte(visualElements.String), &shot.VisualElements); err != nil {
			return nil, fmt.Errorf("decode visual elements for %s: %w", shot.ID, err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		shot.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		shot.UpdatedAt = updated
	}
	return &shot, nil
}

func listShots(ctx context.Context, q queryer) ([]Shot, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+shotColumns+` FROM shots ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	defer rows.Close()

	var out []Shot
	for rows.Next() {
		shot, err := scanShot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		out = append(out, *shot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shots: %w", err)
	}
	return out, nil
}

func getShot(ctx context.Context, q queryer, id string) (*Shot, error) {
	shot, err := scanShot(q.QueryRowContext(ctx, `SELECT `+shotColumns+` FROM shots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shot: %w", err)
	}
	return shot, nil
}

func insertShot(ctx context.Context, tx *sql.Tx, shot Shot) error {
	elements, err := encodeElements(shot.VisualElements)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO shots (`+shotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		shot.ID,
		shot.Number,
		shot.Description,
		elements,
		shot.DurationFrames,
		nullableString(shot.Code),
		nullableString(shot.VideoURL),
		string(shot.Status),
		nullableString(shot.Error),
		nullableString(shot.NarrativeRole),
		nullableString(shot.NarrativeConnection),
		nullableString(shot.KeyMessage),
		nullableString(shot.EmotionalTone),
		formatTime(shot.CreatedAt),
		formatTime(shot.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert shot %s: %w", shot.ID, err)
	}
	return nil
}

func updateShot(ctx context.Context, tx *sql.Tx, shot Shot) error {
	elements, err := encodeElements(shot.VisualElements)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE shots
         SET description = ?, visual_elements_json = ?, duration_frames = ?, code = ?,
             video_url = ?, status = ?, error_message = ?, narrative_role = ?,
             narrative_connection = ?, key_message = ?, emotional_tone = ?, updated_at = ?
         WHERE id = ?`,
		shot.Description,
		elements,
		shot.DurationFrames,
		nullableString(shot.Code),
		nullableString(shot.VideoURL),
		string(shot.Status),
		nullableString(shot.Error),
		nullableString(shot.NarrativeRole),
		nullableString(shot.NarrativeConnection),
		nullableString(shot.KeyMessage),
		nullableString(shot.EmotionalTone),
		formatTime(shot.UpdatedAt),
		shot.ID,
	)
	if err != nil {
		return fmt.Errorf("update shot %s: %w", shot.ID, err)
	}
	return nil
}

// renumber assigns 1..N to ids in order. Numbers are first negated so the
// UNIQUE constraint never sees a transient duplicate.
func renumber(ctx context.Context, tx *sql.Tx, ids []string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE shots SET number = -number`); err != nil {
		return fmt.Errorf("stage renumber: %w", err)
	}
	now := formatTime(time.Now())
	for idx, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE shots SET number = ?, updated_at = ? WHERE id = ?`, idx+1, now, id); err != nil {
			return fmt.Errorf("renumber shot %s: %w", id, err)
		}
	}
	return nil
}

func encodeElements(elements []string) (any, error) {
	if len(elements) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("encode visual elements: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableJSON(value json.RawMessage) any {
	if len(value) == 0 {
		return nil
	}
	return string(value)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
