package persistence

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/talgya/alterlife/internal/game"
	"github.com/talgya/alterlife/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := openTestStore(t)
	id := uuid.New()

	c := game.FallbackCharacter()
	c.Age = 33
	snap := session.Snapshot{
		ID:                id,
		Phase:             "playing",
		Character:         c,
		LastWorldEventAge: 28,
	}
	if err := st.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := st.LoadCharacter(id)
	if err != nil {
		t.Fatalf("LoadCharacter: %v", err)
	}
	if loaded.Age != 33 {
		t.Errorf("age = %d, want 33", loaded.Age)
	}
	if loaded.Job == nil || *loaded.Job != "Unemployed" {
		t.Errorf("job = %v", loaded.Job)
	}

	// Upsert with a newer state wins.
	c.Age = 34
	snap.Character = c
	if err := st.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot update: %v", err)
	}
	loaded, _ = st.LoadCharacter(id)
	if loaded.Age != 34 {
		t.Errorf("age after upsert = %d, want 34", loaded.Age)
	}
}

func TestLoadCharacterUnknownSession(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.LoadCharacter(uuid.New()); err == nil {
		t.Fatal("expected an error for an unknown session")
	}
}

func TestTimelineRoundTrip(t *testing.T) {
	st := openTestStore(t)
	id := uuid.New()

	segments := []game.StorySegment{
		{
			Narrative: "Life begins.",
			Choices:   []game.Choice{{Text: "cry"}, {Text: "sleep"}},
			Age:       0,
		},
		{
			Narrative:            "School starts.",
			Choices:              []game.Choice{},
			RandomEventNarrative: "found a coin",
			Age:                  6,
			IsMajorLifeEvent:     true,
		},
		{
			Narrative:           "The economy turns.",
			Choices:             []game.Choice{},
			WorldEventNarrative: "(Recession) hard times ahead",
			WorldEventSources:   []game.Source{{URI: "https://example.com", Title: "News"}},
			Age:                 21,
		},
	}
	for i, seg := range segments {
		if err := st.AppendSegment(id, i, seg); err != nil {
			t.Fatalf("AppendSegment %d: %v", i, err)
		}
	}

	loaded, err := st.Timeline(id)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("got %d segments, want 3", len(loaded))
	}
	if loaded[0].Narrative != "Life begins." || len(loaded[0].Choices) != 2 {
		t.Errorf("segment 0 = %+v", loaded[0])
	}
	if !loaded[1].IsMajorLifeEvent || loaded[1].RandomEventNarrative != "found a coin" {
		t.Errorf("segment 1 = %+v", loaded[1])
	}
	if len(loaded[2].WorldEventSources) != 1 || loaded[2].WorldEventSources[0].URI != "https://example.com" {
		t.Errorf("segment 2 sources = %+v", loaded[2].WorldEventSources)
	}
}

func TestSetSegmentImage(t *testing.T) {
	st := openTestStore(t)
	id := uuid.New()

	seg := game.StorySegment{Narrative: "a scene", Choices: []game.Choice{}, Age: 20}
	if err := st.AppendSegment(id, 0, seg); err != nil {
		t.Fatalf("AppendSegment: %v", err)
	}
	if err := st.SetSegmentImage(id, 0, "https://img.example/scene.jpg"); err != nil {
		t.Fatalf("SetSegmentImage: %v", err)
	}

	loaded, err := st.Timeline(id)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if loaded[0].ImageURL != "https://img.example/scene.jpg" {
		t.Errorf("image = %q", loaded[0].ImageURL)
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open with missing parent directory: %v", err)
	}
	st.Close()
}

func TestLoadSessionsRestoresSnapshotWithTimeline(t *testing.T) {
	st := openTestStore(t)

	playing := uuid.New()
	over := uuid.New()

	c := game.FallbackCharacter()
	c.Age = 41
	if err := st.SaveSnapshot(session.Snapshot{
		ID:                playing,
		Phase:             "playing",
		Character:         c,
		LastWorldEventAge: 35,
	}); err != nil {
		t.Fatalf("SaveSnapshot playing: %v", err)
	}
	for i, seg := range []game.StorySegment{
		{Narrative: "A quiet year.", Choices: []game.Choice{{Text: "work"}}, Age: 40},
		{Narrative: "A raise at last.", Choices: []game.Choice{{Text: "celebrate"}, {Text: "save"}}, Age: 41},
	} {
		if err := st.AppendSegment(playing, i, seg); err != nil {
			t.Fatalf("AppendSegment %d: %v", i, err)
		}
	}

	if err := st.SaveSnapshot(session.Snapshot{
		ID:             over,
		Phase:          "game_over",
		Character:      game.FallbackCharacter(),
		GameOverReason: "Old age",
	}); err != nil {
		t.Fatalf("SaveSnapshot game over: %v", err)
	}

	snaps, err := st.LoadSessions()
	if err != nil {
		t.Fatalf("LoadSessions: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snaps))
	}

	byID := map[uuid.UUID]session.Snapshot{}
	for _, s := range snaps {
		byID[s.ID] = s
	}

	got, ok := byID[playing]
	if !ok {
		t.Fatalf("playing session missing from %+v", snaps)
	}
	if got.Phase != "playing" || got.Character.Age != 41 || got.LastWorldEventAge != 35 {
		t.Errorf("playing snapshot = %+v", got)
	}
	if len(got.History) != 2 || got.History[1].Narrative != "A raise at last." {
		t.Errorf("playing history = %+v", got.History)
	}
	if len(got.History) == 2 && len(got.History[1].Choices) != 2 {
		t.Errorf("last segment choices = %+v", got.History[1].Choices)
	}

	if got := byID[over]; got.Phase != "game_over" || got.GameOverReason != "Old age" {
		t.Errorf("game-over snapshot = %+v", got)
	}
}

func TestDeleteDropsSessionAndTimeline(t *testing.T) {
	st := openTestStore(t)
	id := uuid.New()

	st.SaveSnapshot(session.Snapshot{ID: id, Phase: "playing", Character: game.FallbackCharacter()})
	st.AppendSegment(id, 0, game.StorySegment{Narrative: "x", Choices: []game.Choice{}})

	if err := st.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := st.LoadCharacter(id); err == nil {
		t.Error("session row survived delete")
	}
	loaded, err := st.Timeline(id)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("segments survived delete: %d", len(loaded))
	}

	// Deleting again is not an error.
	if err := st.Delete(id); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
