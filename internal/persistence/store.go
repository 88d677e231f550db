// Package persistence provides SQLite-backed storage for sessions and their
// story timelines, so a life survives a process restart.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/alterlife/internal/game"
	"github.com/talgya/alterlife/internal/session"
)

// Store wraps a SQLite connection.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path, creating the
// parent directory if it does not exist yet.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	st := &Store{conn: conn}
	if err := st.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

// Close closes the database connection.
func (st *Store) Close() error {
	return st.conn.Close()
}

func (st *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		phase TEXT NOT NULL,
		character_json TEXT NOT NULL,
		game_over_reason TEXT NOT NULL DEFAULT '',
		last_world_event_age INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS segments (
		session_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		narrative TEXT NOT NULL,
		choices_json TEXT NOT NULL,
		random_event TEXT NOT NULL DEFAULT '',
		world_event TEXT NOT NULL DEFAULT '',
		sources_json TEXT,
		image_url TEXT NOT NULL DEFAULT '',
		age INTEGER NOT NULL,
		major INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (session_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_segments_session ON segments(session_id);
	`
	_, err := st.conn.Exec(schema)
	return err
}

// SaveSnapshot upserts the session row.
func (st *Store) SaveSnapshot(snap session.Snapshot) error {
	characterJSON, err := json.Marshal(snap.Character)
	if err != nil {
		return fmt.Errorf("marshal character: %w", err)
	}

	_, err = st.conn.Exec(`INSERT INTO sessions
		(id, phase, character_json, game_over_reason, last_world_event_age, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			character_json = excluded.character_json,
			game_over_reason = excluded.game_over_reason,
			last_world_event_age = excluded.last_world_event_age,
			updated_at = excluded.updated_at`,
		snap.ID.String(), snap.Phase, string(characterJSON),
		snap.GameOverReason, snap.LastWorldEventAge,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

// AppendSegment writes one history entry at its index.
func (st *Store) AppendSegment(id uuid.UUID, index int, seg game.StorySegment) error {
	choicesJSON, err := json.Marshal(seg.Choices)
	if err != nil {
		return fmt.Errorf("marshal choices: %w", err)
	}
	var sourcesJSON []byte
	if len(seg.WorldEventSources) > 0 {
		sourcesJSON, err = json.Marshal(seg.WorldEventSources)
		if err != nil {
			return fmt.Errorf("marshal sources: %w", err)
		}
	}

	major := 0
	if seg.IsMajorLifeEvent {
		major = 1
	}

	_, err = st.conn.Exec(`INSERT OR REPLACE INTO segments
		(session_id, idx, narrative, choices_json, random_event, world_event, sources_json, image_url, age, major)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), index, seg.Narrative, string(choicesJSON),
		seg.RandomEventNarrative, seg.WorldEventNarrative,
		nullableString(sourcesJSON), seg.ImageURL, seg.Age, major,
	)
	if err != nil {
		return fmt.Errorf("insert segment %d: %w", index, err)
	}
	return nil
}

// SetSegmentImage records the lazily-resolved image URL for one segment.
func (st *Store) SetSegmentImage(id uuid.UUID, index int, url string) error {
	_, err := st.conn.Exec(
		"UPDATE segments SET image_url = ? WHERE session_id = ? AND idx = ?",
		url, id.String(), index,
	)
	return err
}

// Delete removes a session and its timeline. Missing rows are not an error.
func (st *Store) Delete(id uuid.UUID) error {
	tx, err := st.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM segments WHERE session_id = ?", id.String()); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE id = ?", id.String()); err != nil {
		return err
	}
	return tx.Commit()
}

// Timeline loads a session's story segments in order.
func (st *Store) Timeline(id uuid.UUID) ([]game.StorySegment, error) {
	type row struct {
		Narrative   string         `db:"narrative"`
		ChoicesJSON string         `db:"choices_json"`
		RandomEvent string         `db:"random_event"`
		WorldEvent  string         `db:"world_event"`
		SourcesJSON sql.NullString `db:"sources_json"`
		ImageURL    string         `db:"image_url"`
		Age         int            `db:"age"`
		Major       int            `db:"major"`
	}

	var rows []row
	err := st.conn.Select(&rows,
		`SELECT narrative, choices_json, random_event, world_event, sources_json, image_url, age, major
		 FROM segments WHERE session_id = ? ORDER BY idx`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}

	segments := make([]game.StorySegment, 0, len(rows))
	for _, r := range rows {
		seg := game.StorySegment{
			Narrative:            r.Narrative,
			RandomEventNarrative: r.RandomEvent,
			WorldEventNarrative:  r.WorldEvent,
			ImageURL:             r.ImageURL,
			Age:                  r.Age,
			IsMajorLifeEvent:     r.Major != 0,
		}
		if err := json.Unmarshal([]byte(r.ChoicesJSON), &seg.Choices); err != nil {
			slog.Warn("corrupt choices row, skipping", "error", err)
		}
		if r.SourcesJSON.Valid {
			if err := json.Unmarshal([]byte(r.SourcesJSON.String), &seg.WorldEventSources); err != nil {
				slog.Warn("corrupt sources row, skipping", "error", err)
			}
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// LoadCharacter returns the saved character for a session, or
// sql.ErrNoRows via the wrapped error when the session is unknown.
func (st *Store) LoadCharacter(id uuid.UUID) (game.Character, error) {
	var characterJSON string
	err := st.conn.Get(&characterJSON,
		"SELECT character_json FROM sessions WHERE id = ?", id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Character{}, fmt.Errorf("session %s: %w", id, err)
		}
		return game.Character{}, fmt.Errorf("load session %s: %w", id, err)
	}

	var c game.Character
	if err := json.Unmarshal([]byte(characterJSON), &c); err != nil {
		return game.Character{}, fmt.Errorf("unmarshal character: %w", err)
	}
	return c, nil
}

// LoadSessions rebuilds the snapshot of every persisted session, timeline
// included, for restore at startup. Rows that fail to decode are skipped
// with a warning rather than aborting the whole restore.
func (st *Store) LoadSessions() ([]session.Snapshot, error) {
	type row struct {
		ID             string `db:"id"`
		Phase          string `db:"phase"`
		GameOverReason string `db:"game_over_reason"`
		LastAge        int    `db:"last_world_event_age"`
	}

	var rows []row
	err := st.conn.Select(&rows,
		"SELECT id, phase, game_over_reason, last_world_event_age FROM sessions ORDER BY updated_at")
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	snaps := make([]session.Snapshot, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			slog.Warn("corrupt session id, skipping", "id", r.ID, "error", err)
			continue
		}
		char, err := st.LoadCharacter(id)
		if err != nil {
			slog.Warn("unreadable session, skipping", "id", r.ID, "error", err)
			continue
		}
		history, err := st.Timeline(id)
		if err != nil {
			slog.Warn("unreadable timeline, skipping", "id", r.ID, "error", err)
			continue
		}
		snaps = append(snaps, session.Snapshot{
			ID:                id,
			Phase:             r.Phase,
			Character:         char,
			History:           history,
			GameOverReason:    r.GameOverReason,
			LastWorldEventAge: r.LastAge,
		})
	}
	return snaps, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
