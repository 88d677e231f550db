package session

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/alterlife/internal/game"
	"github.com/talgya/alterlife/internal/llm"
)

// executeTurn runs the per-turn pipeline: gather the two side channels,
// splice their narratives into the primary prompt, call the primary
// generation, normalize, and merge into session state. Each stage carries
// its own error boundary; only the primary call can end the run, and it
// does so through the fallback result rather than an error.
//
// The caller has already claimed the turn (loading set, choices cleared)
// under the lock; apply releases the claim.
func (s *Session) executeTurn(ctx context.Context, baseContext string) {
	s.mu.Lock()
	char := s.character
	firstTurn := len(s.history) == 0
	lastAge := s.lastWorldEventAge
	s.mu.Unlock()

	var randomNarrative string
	var worldEvent *game.WorldEvent

	// The side channels have no ordering dependency on each other, but
	// both must settle before the primary call so their narratives can be
	// spliced into its context.
	g, gctx := errgroup.WithContext(ctx)

	if !firstTurn && s.randFloat() < s.cfg.RandomEventChance {
		g.Go(func() error {
			ev, err := s.gen.RandomEvent(gctx, char)
			if err != nil {
				slog.Warn("random event channel contributed nothing", "error", err)
				return nil
			}
			randomNarrative = ev
			return nil
		})
	}

	// World-event gate evaluates the pre-turn age: the side call must be
	// dispatched before the primary call's new age is known.
	age := char.Age
	period := s.cfg.WorldEventPeriodYears
	if age > 18 && period > 0 && age%period == 0 && age != lastAge {
		g.Go(func() error {
			ev, err := s.gen.WorldEvent(gctx, char)
			if err != nil {
				slog.Warn("world event channel contributed nothing", "error", err)
				return nil
			}
			worldEvent = ev
			return nil
		})
	}

	_ = g.Wait()

	// Record the triggering age only on success so a failed call may retry
	// at the same age, but a successful one can never refire for it.
	if worldEvent != nil {
		s.mu.Lock()
		s.lastWorldEventAge = age
		s.mu.Unlock()
	}

	worldNarrative := ""
	if worldEvent != nil {
		worldNarrative = worldEvent.Narrative
	}
	contents := llm.SpliceEvents(baseContext, randomNarrative, worldNarrative)

	result := s.gen.NextSegment(ctx, contents)
	s.apply(result, randomNarrative, worldEvent)
}

// apply merges a normalized TurnResult into session state. The result's
// narrative, character, choices, and flags win wholesale; the side-channel
// narratives ride along as annotations on the appended StorySegment. The
// model is trusted to have already folded their effects into the character.
func (s *Session) apply(result game.TurnResult, randomNarrative string, worldEvent *game.WorldEvent) {
	seg := game.StorySegment{
		Narrative:            result.Narrative,
		Choices:              result.Choices,
		RandomEventNarrative: randomNarrative,
		Age:                  result.Character.Age,
		IsMajorLifeEvent:     result.IsMajorLifeEvent,
	}
	if worldEvent != nil {
		seg.WorldEventNarrative = worldEvent.Narrative
		seg.WorldEventSources = worldEvent.Sources
	}

	s.mu.Lock()
	s.character = result.Character
	index := len(s.history)
	s.history = append(s.history, seg)

	// Aspiration choices suppress the normal choice slot for the turn.
	if len(result.AspirationsToChoose) > 0 {
		s.aspirations = result.AspirationsToChoose
		s.choices = nil
	} else {
		s.aspirations = nil
		s.choices = result.Choices
	}

	if result.IsGameOver {
		s.phase = PhaseGameOver
		s.gameOverReason = result.GameOverReason
	}
	s.loading = false

	id := s.id
	epoch := s.epoch
	char := s.character
	s.mu.Unlock()

	if result.SceneMood != "" {
		s.audio.SetMusicByMood(result.SceneMood)
	}
	s.modifiers.Publish(result.StatModifiers, result.FinancialModifiers, result.SkillModifiers, s.cfg.ModifierWindow)

	if result.IsGameOver {
		s.audio.StopMusic()
		s.audio.PlayEffect("gameOver")
	} else {
		// Fire-and-forget: the image resolves out of band and attaches to
		// this segment by index, or silently doesn't.
		go s.resolveImage(epoch, index, result.Narrative, char)
	}

	if s.store != nil {
		if err := s.store.AppendSegment(id, index, seg); err != nil {
			slog.Warn("failed to persist story segment", "error", err)
		}
		if err := s.store.SaveSnapshot(s.Snapshot()); err != nil {
			slog.Warn("failed to persist session", "error", err)
		}
	}
}

// resolveImage requests the scene image and performs the one targeted
// history mutation a segment ever receives. Never retried; failure means no
// image.
func (s *Session) resolveImage(epoch uint64, index int, narrative string, char game.Character) {
	url, err := s.gen.GenerateImage(context.Background(), narrative, char)
	if err != nil {
		slog.Warn("image generation failed", "error", err)
		return
	}
	if url == "" {
		return
	}
	s.attachImage(epoch, index, url)
}

// attachImage sets the segment's image URL. A stale epoch (the life was
// restarted meanwhile) or an out-of-range index makes it a no-op.
func (s *Session) attachImage(epoch uint64, index int, url string) {
	s.mu.Lock()
	id := s.id
	attached := false
	if epoch == s.epoch && index >= 0 && index < len(s.history) && s.history[index].ImageURL == "" {
		s.history[index].ImageURL = url
		attached = true
	}
	s.mu.Unlock()

	if attached && s.store != nil {
		if err := s.store.SetSegmentImage(id, index, url); err != nil {
			slog.Warn("failed to persist segment image", "error", err)
		}
	}
}
