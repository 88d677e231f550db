// Package session owns the game lifecycle: the TitleScreen → Playing →
// GameOver state machine, the per-turn orchestration pipeline, and the
// transient feedback timers. One session is one life (or one legacy chain
// of lives).
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/alterlife/internal/audio"
	"github.com/talgya/alterlife/internal/game"
	"github.com/talgya/alterlife/internal/llm"
)

// Phase is the session lifecycle state.
type Phase int

const (
	PhaseTitleScreen Phase = iota
	PhasePlaying
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseTitleScreen:
		return "title_screen"
	case PhasePlaying:
		return "playing"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

var (
	// ErrTurnInFlight is returned when a submission arrives while a turn
	// is still awaiting the model. Exactly one turn may be in flight.
	ErrTurnInFlight = errors.New("a turn is already in flight")
	// ErrWrongPhase is returned for operations invalid in the current phase.
	ErrWrongPhase = errors.New("operation not valid in current phase")
	// ErrNotAChild is returned when a legacy restart names a relationship
	// that is not of the Child category.
	ErrNotAChild = errors.New("legacy restart requires a Child relationship")
)

// Generator is the model capability boundary the orchestrator drives.
// NextSegment and CreateCharacter always return a usable TurnResult
// (failures inside degrade to the fixed fallback); the side channels
// return errors and contribute nothing on failure.
type Generator interface {
	NextSegment(ctx context.Context, contents string) game.TurnResult
	CreateCharacter(ctx context.Context, legacy *game.LegacyContext) game.TurnResult
	RandomEvent(ctx context.Context, c game.Character) (string, error)
	WorldEvent(ctx context.Context, c game.Character) (*game.WorldEvent, error)
	GenerateImage(ctx context.Context, narrative string, c game.Character) (string, error)
}

// Store persists session state and the story timeline. All calls are
// best-effort from the session's point of view: persistence failures are
// logged, never allowed to break a turn.
type Store interface {
	SaveSnapshot(snap Snapshot) error
	AppendSegment(id uuid.UUID, index int, seg game.StorySegment) error
	SetSegmentImage(id uuid.UUID, index int, url string) error
	Delete(id uuid.UUID) error
}

// Config carries the orchestration tunables with their reference defaults.
type Config struct {
	// RandomEventChance is the per-turn probability of the personal
	// random-event side call.
	RandomEventChance float64
	// WorldEventPeriodYears triggers the world-event side call at ages
	// that are exact multiples of this period (past age 18).
	WorldEventPeriodYears int
	// ModifierWindow is how long published stat/finance/skill deltas stay
	// visible.
	ModifierWindow time.Duration
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		RandomEventChance:     0.25,
		WorldEventPeriodYears: 7,
		ModifierWindow:        3 * time.Second,
	}
}

// Session is one player's game. Callers must not run two turns
// concurrently for the same session; the loading flag gates submissions at
// the API boundary and the internal mutex only protects snapshot reads and
// the out-of-band image attach.
type Session struct {
	mu sync.Mutex

	id                uuid.UUID
	phase             Phase
	character         game.Character
	history           []game.StorySegment
	choices           []game.Choice
	aspirations       []game.Choice
	loading           bool
	gameOverReason    string
	timelineVisible   bool
	muted             bool
	lastWorldEventAge int

	// epoch increments on every hard reset so a late-resolving image from
	// a previous life cannot attach to the new history.
	epoch uint64

	modifiers *Modifiers

	gen       Generator
	audio     *audio.Service
	store     Store
	cfg       Config
	randFloat func() float64
}

// Option configures a Session.
type Option func(*Session)

// WithConfig overrides the default tuning.
func WithConfig(cfg Config) Option { return func(s *Session) { s.cfg = cfg } }

// WithStore attaches a persistence store.
func WithStore(store Store) Option { return func(s *Session) { s.store = store } }

// WithRandom injects the probability source for the random-event gate.
func WithRandom(f func() float64) Option { return func(s *Session) { s.randFloat = f } }

// WithClock injects the time source used by the feedback timers.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.modifiers = NewModifiers(now) }
}

// New creates a session on the title screen.
func New(gen Generator, aud *audio.Service, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New(),
		phase:     PhaseTitleScreen,
		character: initialCharacter(),
		gen:       gen,
		audio:     aud,
		cfg:       DefaultConfig(),
		randFloat: entropyDefault,
		modifiers: NewModifiers(time.Now),
	}
	for _, opt := range opts {
		opt(s)
	}
	aud.LoadSounds()
	return s
}

// Restore rebuilds a session from a persisted snapshot so a life survives a
// process restart. Active choices come from the snapshot when present, or
// are recovered from the last story segment. Aspiration offers and the
// transient feedback timers are not persisted; a restored life resumes on
// plain choices.
func Restore(snap Snapshot, gen Generator, aud *audio.Service, opts ...Option) *Session {
	s := New(gen, aud, opts...)
	s.mu.Lock()
	s.id = snap.ID
	s.phase = phaseFromString(snap.Phase)
	s.character = snap.Character
	s.history = append([]game.StorySegment(nil), snap.History...)
	s.choices = append([]game.Choice(nil), snap.Choices...)
	s.gameOverReason = snap.GameOverReason
	s.muted = snap.Muted
	s.lastWorldEventAge = snap.LastWorldEventAge
	if len(s.choices) == 0 && s.phase == PhasePlaying {
		if n := len(s.history); n > 0 {
			s.choices = append([]game.Choice(nil), s.history[n-1].Choices...)
		}
	}
	s.mu.Unlock()
	return s
}

// phaseFromString maps a persisted phase label back to its Phase. Unknown
// labels land on the title screen, the only phase safe to resume blind.
func phaseFromString(v string) Phase {
	switch v {
	case "playing":
		return PhasePlaying
	case "game_over":
		return PhaseGameOver
	default:
		return PhaseTitleScreen
	}
}

// entropyDefault is replaced in main with the entropy source's Float.
var entropyDefault = func() float64 { return 0.5 }

// SetDefaultRandom sets the process-wide default probability source for
// sessions constructed without WithRandom.
func SetDefaultRandom(f func() float64) {
	if f != nil {
		entropyDefault = f
	}
}

// initialCharacter is the empty pre-game snapshot shown on the title screen.
func initialCharacter() game.Character {
	return game.Character{
		Habits:        []string{},
		Relationships: []game.Relationship{},
		Conditions:    []game.HealthCondition{},
		Schedule:      []game.ScheduledEvent{},
		Time:          game.Clock{DayOfWeek: "Monday"},
		WorldState:    game.WorldState{EconomicClimate: game.ClimateStable, CurrentYear: 2024},
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Begin starts a new life from the title screen: a character-creation call
// with no prior history and no side channels seeds the first segment.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseTitleScreen {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if s.loading {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.loading = true
	s.phase = PhasePlaying
	s.history = nil
	s.lastWorldEventAge = 0
	s.epoch++
	s.mu.Unlock()

	s.audio.SetMusicByMood(game.MoodReflective)
	s.audio.PlayEffect("click")

	result := s.gen.CreateCharacter(ctx, nil)
	s.apply(result, "", nil)
	return nil
}

// ContinueAsChild starts a fresh life seeded from one Child relationship of
// the just-ended character: separate history, separate world-event memory,
// and a new session identity.
func (s *Session) ContinueAsChild(ctx context.Context, childName string) error {
	s.mu.Lock()
	if s.phase != PhaseGameOver {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if s.loading {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	var child *game.Relationship
	for i, r := range s.character.Relationships {
		if r.Name == childName {
			child = &s.character.Relationships[i]
			break
		}
	}
	if child == nil || child.Type != game.RelationChild {
		s.mu.Unlock()
		return ErrNotAChild
	}
	legacy := &game.LegacyContext{Parent: s.character, Child: *child}

	oldID := s.id
	s.id = uuid.New()
	s.loading = true
	s.phase = PhasePlaying
	s.history = nil
	s.choices = nil
	s.aspirations = nil
	s.gameOverReason = ""
	s.lastWorldEventAge = 0
	s.epoch++
	s.mu.Unlock()

	s.audio.PlayEffect("click")
	if s.store != nil {
		if err := s.store.Delete(oldID); err != nil {
			slog.Warn("failed to drop finished session", "error", err)
		}
	}

	result := s.gen.CreateCharacter(ctx, legacy)
	s.apply(result, "", nil)
	s.audio.SetMusicByMood(game.MoodReflective)
	return nil
}

// MakeChoice submits one of the active story choices as the turn's action.
func (s *Session) MakeChoice(ctx context.Context, choice game.Choice) error {
	baseContext, err := s.startTurn(choice.Text)
	if err != nil {
		return err
	}
	s.executeTurn(ctx, baseContext)
	return nil
}

// PerformDailyAction submits a free-text daily action as the turn's action.
func (s *Session) PerformDailyAction(ctx context.Context, action string) error {
	baseContext, err := s.startTurn(action)
	if err != nil {
		return err
	}
	s.executeTurn(ctx, baseContext)
	return nil
}

// ChooseAspiration submits an aspiration selection. The turn context frames
// the selection rather than a daily action, but the pipeline is identical.
func (s *Session) ChooseAspiration(ctx context.Context, choice game.Choice) error {
	s.mu.Lock()
	if s.phase != PhasePlaying {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if s.loading {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.loading = true
	s.choices = nil
	baseContext := llm.BuildAspirationContext(s.character, choice.Text)
	s.mu.Unlock()

	s.audio.PlayEffect("click")
	s.executeTurn(ctx, baseContext)
	return nil
}

// startTurn validates phase and in-flight state, claims the turn, and builds
// the base context from the current character, the last narrative, and the
// action text. The claim happens under the same lock as the check so two
// racing submissions can never both pass the gate.
func (s *Session) startTurn(action string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying {
		return "", ErrWrongPhase
	}
	if s.loading {
		return "", ErrTurnInFlight
	}
	s.loading = true
	s.choices = nil
	lastNarrative := ""
	if n := len(s.history); n > 0 {
		lastNarrative = s.history[n-1].Narrative
	}
	s.audio.PlayEffect("click")
	return llm.BuildTurnContext(s.character, lastNarrative, action), nil
}

// Restart is the hard reset: back to the title screen, all session state
// discarded. Not a rollback; the previous life is gone.
func (s *Session) Restart() {
	s.audio.PlayEffect("click")
	s.audio.StopMusic()

	s.mu.Lock()
	id := s.id
	s.phase = PhaseTitleScreen
	s.character = initialCharacter()
	s.history = nil
	s.choices = nil
	s.aspirations = nil
	s.loading = false
	s.gameOverReason = ""
	s.timelineVisible = false
	s.lastWorldEventAge = 0
	s.epoch++
	s.mu.Unlock()

	s.modifiers.Clear()
	if s.store != nil {
		if err := s.store.Delete(id); err != nil {
			slog.Warn("failed to drop session on restart", "error", err)
		}
	}
}

// SetMuted toggles audio muting for the session.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()

	s.audio.SetMuted(muted)
	if !muted {
		s.audio.PlayEffect("click")
	}
}

// SetTimelineVisible toggles the timeline overlay. This is an orthogonal
// flag, not a phase transition; it never interrupts an in-flight turn.
func (s *Session) SetTimelineVisible(visible bool) {
	s.audio.PlayEffect("click")
	s.mu.Lock()
	s.timelineVisible = visible
	s.mu.Unlock()
}

// Timeline returns the story history, optionally filtered to major life
// events for the condensed view.
func (s *Session) Timeline(majorOnly bool) []game.StorySegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]game.StorySegment, 0, len(s.history))
	for _, seg := range s.history {
		if majorOnly && !seg.IsMajorLifeEvent {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// Snapshot is a consistent read of the session for rendering and
// persistence.
type Snapshot struct {
	ID                 uuid.UUID           `json:"id"`
	Phase              string              `json:"phase"`
	Character          game.Character      `json:"character"`
	History            []game.StorySegment `json:"history"`
	Choices            []game.Choice       `json:"choices"`
	Aspirations        []game.Choice       `json:"aspirationsToChoose,omitempty"`
	Loading            bool                `json:"loading"`
	GameOverReason     string              `json:"gameOverReason,omitempty"`
	StatModifiers      map[string]float64  `json:"statModifiers,omitempty"`
	FinancialModifiers map[string]float64  `json:"financialModifiers,omitempty"`
	SkillModifiers     map[string]float64  `json:"skillModifiers,omitempty"`
	TimelineVisible    bool                `json:"timelineVisible"`
	Muted              bool                `json:"muted"`
	LastWorldEventAge  int                 `json:"lastWorldEventAge"`
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, financial, skill := s.modifiers.Active()
	history := make([]game.StorySegment, len(s.history))
	copy(history, s.history)

	return Snapshot{
		ID:                 s.id,
		Phase:              s.phase.String(),
		Character:          s.character,
		History:            history,
		Choices:            append([]game.Choice(nil), s.choices...),
		Aspirations:        append([]game.Choice(nil), s.aspirations...),
		Loading:            s.loading,
		GameOverReason:     s.gameOverReason,
		StatModifiers:      stat,
		FinancialModifiers: financial,
		SkillModifiers:     skill,
		TimelineVisible:    s.timelineVisible,
		Muted:              s.muted,
		LastWorldEventAge:  s.lastWorldEventAge,
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Loading reports whether a turn is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
