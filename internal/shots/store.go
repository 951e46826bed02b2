package shots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shotreel/internal/services"
)

// Replace discards every existing shot and stores the supplied list as the
// new storyboard. Numbers are reassigned 1..N in slice order and missing ids
// are generated.
func (s *Store) Replace(ctx context.Context, shots []Shot) ([]Shot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	prepared := make([]Shot, len(shots))
	seen := make(map[string]struct{}, len(shots))
	for idx, shot := range shots {
		if strings.TrimSpace(shot.ID) == "" {
			shot.ID = uuid.NewString()
		}
		if _, dup := seen[shot.ID]; dup {
			return nil, services.Wrap(services.ErrValidation, "shots", "replace", "duplicate shot id "+shot.ID, nil)
		}
		seen[shot.ID] = struct{}{}
		if shot.Status == "" {
			shot.Status = StatusPending
		}
		shot.Number = idx + 1
		shot.CreatedAt = now
		shot.UpdatedAt = now
		if err := shot.Validate(); err != nil {
			return nil, services.Wrap(services.ErrValidation, "shots", "replace", "", err)
		}
		prepared[idx] = shot
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shots`); err != nil {
			return fmt.Errorf("clear shots: %w", err)
		}
		for _, shot := range prepared {
			if err := insertShot(ctx, tx, shot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

// Get returns the shot with id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Shot, error) {
	return getShot(ctx, s.db, id)
}

// List returns every shot ordered by number.
func (s *Store) List(ctx context.Context) ([]Shot, error) {
	return listShots(ctx, s.db)
}

// Update applies mutate to the stored shot and persists the result. The
// identity and number cannot be changed here; status changes must follow
// ValidTransition and the result must satisfy Shot.Validate.
func (s *Store) Update(ctx context.Context, id string, mutate func(*Shot) error) (*Shot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *Shot
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := getShot(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return services.Wrap(services.ErrNotFound, "shots", "update", "shot "+id, nil)
		}
		next := *current
		next.VisualElements = append([]string(nil), current.VisualElements...)
		if err := mutate(&next); err != nil {
			return err
		}
		next.ID = current.ID
		next.Number = current.Number
		next.CreatedAt = current.CreatedAt
		if next.Status != current.Status && !ValidTransition(current.Status, next.Status) {
			return services.Wrap(services.ErrValidation, "shots", "update",
				fmt.Sprintf("shot %s: invalid transition %s -> %s", id, current.Status, next.Status), nil)
		}
		if err := next.Validate(); err != nil {
			return services.Wrap(services.ErrValidation, "shots", "update", "", err)
		}
		next.UpdatedAt = time.Now().UTC()
		if err := updateShot(ctx, tx, next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkGenerating moves a shot into code generation, clearing any prior error
// and video. Existing code is kept as the revision base.
func (s *Store) MarkGenerating(ctx context.Context, id string) (*Shot, error) {
	return s.Update(ctx, id, func(shot *Shot) error {
		shot.Status = StatusGenerating
		shot.Error = ""
		shot.VideoURL = ""
		return nil
	})
}

// MarkCodeReady stores freshly generated code.
func (s *Store) MarkCodeReady(ctx context.Context, id, code string) (*Shot, error) {
	return s.Update(ctx, id, func(shot *Shot) error {
		shot.Status = StatusCodeReady
		shot.Code = code
		shot.Error = ""
		shot.VideoURL = ""
		return nil
	})
}

// MarkRendering records that the shot's code has been handed to the render queue.
func (s *Store) MarkRendering(ctx context.Context, id string) (*Shot, error) {
	return s.Update(ctx, id, func(shot *Shot) error {
		shot.Status = StatusRendering
		shot.Error = ""
		shot.VideoURL = ""
		return nil
	})
}

// MarkComplete stores the rendered video URL.
func (s *Store) MarkComplete(ctx context.Context, id, videoURL string) (*Shot, error) {
	return s.Update(ctx, id, func(shot *Shot) error {
		shot.Status = StatusComplete
		shot.VideoURL = videoURL
		shot.Error = ""
		return nil
	})
}

// MarkError records a failure message. A message is always stored so the
// shot never sits in the error state without one.
func (s *Store) MarkError(ctx context.Context, id, message string) (*Shot, error) {
	if strings.TrimSpace(message) == "" {
		message = "Unknown error"
	}
	return s.Update(ctx, id, func(shot *Shot) error {
		shot.Status = StatusError
		shot.Error = message
		shot.VideoURL = ""
		return nil
	})
}

// InterruptedMessage is recorded on shots that were mid-generation or
// mid-render when their process exited.
const InterruptedMessage = "Interrupted before finishing; retry or regenerate the shot"

// ResetStuck moves shots left in generating or rendering by an earlier
// process into the error state. Callers must hold the workspace lock so no
// live process owns those shots.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE shots
             SET status = ?, error_message = ?, video_url = NULL, updated_at = ?
             WHERE status IN (?, ?)`,
			string(StatusError),
			InterruptedMessage,
			formatTime(time.Now()),
			string(StatusGenerating),
			string(StatusRendering),
		)
		if err != nil {
			return fmt.Errorf("reset stuck shots: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// UpdateDescription replaces a shot's description. Generated code is kept;
// the new description takes effect on the next generation.
func (s *Store) UpdateDescription(ctx context.Context, id, description string) (*Shot, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, services.Wrap(services.ErrValidation, "shots", "update description", "description is required", nil)
	}
	return s.Update(ctx, id, func(shot *Shot) error {
		if shot.Status == StatusGenerating || shot.Status == StatusRendering {
			return services.Wrap(services.ErrValidation, "shots", "update description",
				fmt.Sprintf("shot %d is %s", shot.Number, shot.Status), nil)
		}
		shot.Description = description
		return nil
	})
}

// Delete removes a shot and renumbers the remainder contiguously.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM shots WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete shot: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return services.Wrap(services.ErrNotFound, "shots", "delete", "shot "+id, nil)
		}
		remaining, err := listShots(ctx, tx)
		if err != nil {
			return err
		}
		ids := make([]string, len(remaining))
		for i, shot := range remaining {
			ids[i] = shot.ID
		}
		return renumber(ctx, tx, ids)
	})
}

// Reorder renumbers shots to follow ids, which must be a permutation of every
// stored shot id.
func (s *Store) Reorder(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := listShots(ctx, tx)
		if err != nil {
			return err
		}
		if len(ids) != len(existing) {
			return services.Wrap(services.ErrValidation, "shots", "reorder",
				fmt.Sprintf("expected %d ids, got %d", len(existing), len(ids)), nil)
		}
		known := make(map[string]bool, len(existing))
		for _, shot := range existing {
			known[shot.ID] = false
		}
		for _, id := range ids {
			used, ok := known[id]
			if !ok {
				return services.Wrap(services.ErrNotFound, "shots", "reorder", "shot "+id, nil)
			}
			if used {
				return services.Wrap(services.ErrValidation, "shots", "reorder", "duplicate shot id "+id, nil)
			}
			known[id] = true
		}
		return renumber(ctx, tx, ids)
	})
}

// SaveThemes stores the storyboard-wide themes.
func (s *Store) SaveThemes(ctx context.Context, themes Themes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO storyboard (id, prompt, title, visual_theme_json, narrative_theme_json, updated_at)
             VALUES (1, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                 prompt = excluded.prompt,
                 title = excluded.title,
                 visual_theme_json = excluded.visual_theme_json,
                 narrative_theme_json = excluded.narrative_theme_json,
                 updated_at = excluded.updated_at`,
			nullableString(themes.Prompt),
			nullableString(themes.Title),
			nullableJSON(themes.Visual),
			nullableJSON(themes.Narrative),
			formatTime(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("save themes: %w", err)
		}
		return nil
	})
}

// Themes returns the stored storyboard themes; the zero value is returned when
// none have been saved.
func (s *Store) Themes(ctx context.Context) (Themes, error) {
	var (
		themes     Themes
		prompt     sql.NullString
		title      sql.NullString
		visual     sql.NullString
		narrative  sql.NullString
		updatedRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT prompt, title, visual_theme_json, narrative_theme_json, updated_at FROM storyboard WHERE id = 1`,
	).Scan(&prompt, &title, &visual, &narrative, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return themes, nil
	}
	if err != nil {
		return themes, fmt.Errorf("load themes: %w", err)
	}
	themes.Prompt = prompt.String
	themes.Title = title.String
	if visual.Valid {
		themes.Visual = []byte(visual.String)
	}
	if narrative.Valid {
		themes.Narrative = []byte(narrative.String)
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		themes.UpdatedAt = updated
	}
	return themes, nil
}

// Counts returns the number of shots per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM shots GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count shots: %w", err)
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}
