// Package audio manages mood-based background music and sound effects as an
// explicitly constructed capability: the session holds an instance and
// passes it by reference, there is no package-level singleton. Actual
// playback is delegated to an Output so the core stays UI-free.
package audio

import (
	"log/slog"
	"sync"

	"github.com/talgya/alterlife/internal/game"
)

// Output performs playback. Play starts a track from the beginning; Resume
// continues a paused track from where it stopped.
type Output interface {
	Play(track string) error
	Pause(track string)
	Resume(track string) error
	Stop(track string)
}

// Default track and effect sources, keyed the way the UI expects them.
var defaultTracks = map[game.SceneMood]string{
	game.MoodReflective: "https://www.chosic.com/wp-content/uploads/2021/04/And-So-It-Begins-Inspired-By-Crush-Sometimes.mp3",
	game.MoodNeutral:    "https://www.chosic.com/wp-content/uploads/2022/08/purrple-cat-lost-and-found.mp3",
	game.MoodHappy:      "https://www.chosic.com/wp-content/uploads/2021/07/purrple-cat-wondering.mp3",
	game.MoodSad:        "https://www.chosic.com/wp-content/uploads/2020/09/Keys-of-Moon-A-Little-Story.mp3",
	game.MoodTense:      "https://www.chosic.com/wp-content/uploads/2021/05/Dark-Tranquility-by-An-Jone.mp3",
}

var defaultEffects = map[string]string{
	"click":    "https://soundbible.com/mp3/Tick-DeepFrozenApps-397275646.mp3",
	"gameOver": "https://www.chosic.com/wp-content/uploads/2022/02/The-Last-Goodbye.mp3",
}

// Service routes mood changes and effects to the Output. Unknown mood or
// effect names are logged and ignored, never an error.
type Service struct {
	mu      sync.Mutex
	out     Output
	tracks  map[game.SceneMood]string
	effects map[string]string

	loaded       bool
	muted        bool
	currentMood  game.SceneMood
	currentTrack string
	paused       bool
}

// NewService creates an audio service over the given output.
func NewService(out Output) *Service {
	return &Service{out: out}
}

// LoadSounds performs the one-time lazy initialization of the track and
// effect registries. Safe to call repeatedly.
func (s *Service) LoadSounds() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return
	}
	s.tracks = defaultTracks
	s.effects = defaultEffects
	s.loaded = true
}

// SetMusicByMood switches background music to the given mood's track. It is
// a no-op when muted or when that track is already playing; any other
// current track is stopped first.
func (s *Service) SetMusicByMood(mood game.SceneMood) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.muted {
		return
	}

	track, ok := s.tracks[mood]
	if !ok {
		slog.Warn("music for mood not found", "mood", mood)
		return
	}
	if s.currentTrack == track && !s.paused {
		return
	}

	if s.currentTrack != "" {
		s.out.Stop(s.currentTrack)
	}

	s.currentMood = mood
	s.currentTrack = track
	s.paused = false
	if err := s.out.Play(track); err != nil {
		slog.Error("music playback failed", "mood", mood, "error", err)
	}
}

// StopMusic stops any playing track.
func (s *Service) StopMusic() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTrack != "" {
		s.out.Stop(s.currentTrack)
		s.currentTrack = ""
		s.currentMood = ""
		s.paused = false
	}
}

// PlayEffect plays a one-shot sound effect. No-op when muted; unknown
// effect names are logged and ignored.
func (s *Service) PlayEffect(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.muted {
		return
	}
	effect, ok := s.effects[name]
	if !ok {
		slog.Warn("sound effect not found", "effect", name)
		return
	}
	if err := s.out.Play(effect); err != nil {
		slog.Error("sound effect playback failed", "effect", name, "error", err)
	}
}

// SetMuted pauses the current track on mute and resumes the same track from
// its paused position on unmute. A failed resume is logged and the track
// stays paused.
func (s *Service) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.muted = muted
	if s.currentTrack == "" {
		return
	}
	if muted {
		s.out.Pause(s.currentTrack)
		s.paused = true
		return
	}
	if s.paused {
		if err := s.out.Resume(s.currentTrack); err != nil {
			slog.Error("music resume failed after unmute", "error", err)
			return
		}
		s.paused = false
	}
}

// Muted reports the current mute state.
func (s *Service) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// LogOutput is the headless Output: it records player intent at debug level
// so the service's state machine still runs where no audio device exists.
type LogOutput struct{}

func (LogOutput) Play(track string) error {
	slog.Debug("audio play", "track", track)
	return nil
}

func (LogOutput) Pause(track string) {
	slog.Debug("audio pause", "track", track)
}

func (LogOutput) Resume(track string) error {
	slog.Debug("audio resume", "track", track)
	return nil
}

func (LogOutput) Stop(track string) {
	slog.Debug("audio stop", "track", track)
}
