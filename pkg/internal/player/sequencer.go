// Package player implements the kiosk playback loop: an endless rotation
// over the clip list a store currently serves, resilient to list changes,
// playback failures and empty stores.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/tvloop/tvloop/pkg/configs"
	"github.com/tvloop/tvloop/pkg/log"
)

// Clip is one playable entry in the rotation.
type Clip struct {
	Filename string
	URL      string
}

// State is the sequencer's coarse lifecycle phase.
type State string

const (
	StateLoading    State = "loading"    // first fetch not yet completed
	StatePlaying    State = "playing"    // a clip is on screen
	StateRecovering State = "recovering" // last play failed, backing off
	StateEmpty      State = "empty"      // store has no clips
)

// Playback renders one clip. Play blocks until the clip ends naturally,
// fails, or the context is canceled.
type Playback interface {
	Play(ctx context.Context, url string) error
}

// Source provides the current clip list.
type Source interface {
	Fetch(ctx context.Context) ([]Clip, error)
}

// Sequencer owns the rotation position and drives Playback from a Source.
// The advance rules survive list edits: the wrap point is always the list
// length at advance time, never a stale snapshot.
type Sequencer struct {
	playback Playback
	source   Source
	clock    clockwork.Clock
	cfg      *configs.PlayerConfig
	logger   zerolog.Logger

	mu         sync.Mutex
	clips      []Clip
	index      int
	state      State
	cancelPlay context.CancelFunc
	reloaded   bool
}

// NewSequencer creates a Sequencer. A nil clock uses the wall clock.
func NewSequencer(playback Playback, source Source, cfg *configs.PlayerConfig, clock clockwork.Clock) *Sequencer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Sequencer{
		playback: playback,
		source:   source,
		clock:    clock,
		cfg:      cfg,
		state:    StateLoading,
		logger:   log.Logger().With().Str("component", "player").Logger(),
	}
}

// State returns the current lifecycle phase.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Current returns the clip at the rotation position, or false when the list
// is empty.
func (s *Sequencer) Current() (Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clips) == 0 {
		return Clip{}, false
	}

	return s.clips[s.index], true
}

// Advance moves past a naturally finished clip. The wrap point is the list
// length right now, so a single-clip list replays in place and a list that
// shrank since play started still wraps correctly.
func (s *Sequencer) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clips) == 0 {
		s.index = 0

		return
	}

	s.index = (s.index + 1) % len(s.clips)
}

// AdvanceAfterError reacts to a failed play. With more than one clip the
// rotation skips ahead; with exactly one there is nowhere to go, so the
// caller should back off and retry the same clip. Reports whether the
// position moved.
func (s *Sequencer) AdvanceAfterError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clips) <= 1 {
		return false
	}

	s.index = (s.index + 1) % len(s.clips)

	return true
}

// SetClips replaces the rotation list. When the clip currently on screen is
// still present, the position follows it and playback continues unharmed.
// When it is gone, the rotation resets to the head and any in-flight play is
// canceled so the stale clip leaves the screen immediately.
func (s *Sequencer) SetClips(clips []Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var currentName string
	if len(s.clips) > 0 {
		currentName = s.clips[s.index].Filename
	}

	s.clips = append([]Clip(nil), clips...)

	for i, c := range s.clips {
		if c.Filename == currentName {
			s.index = i

			return
		}
	}

	s.index = 0

	// Only a play actually in flight needs the reload handshake; between
	// plays the index reset alone puts the next iteration on the new head.
	if currentName != "" && s.cancelPlay != nil {
		s.reloaded = true
		s.cancelPlay()
	}
}

// Run loops forever: fetch, play, advance. It returns only when ctx ends.
func (s *Sequencer) Run(ctx context.Context) error {
	s.refresh(ctx)

	go s.refreshLoop(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		clip, ok := s.Current()
		if !ok {
			s.waitEmpty(ctx)

			continue
		}

		s.setState(StatePlaying)
		s.logger.Debug().Str("clip", clip.Filename).Msg("Playing")

		err := s.play(ctx, clip)

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case s.consumeReload():
			// The list changed under us and the position was reset;
			// start over from the new head without advancing.
		case err != nil:
			s.logger.Warn().Err(err).Str("clip", clip.Filename).Msg("Playback failed")
			s.setState(StateRecovering)

			if !s.AdvanceAfterError() {
				s.sleep(ctx, s.cfg.RetryDelay())
			}
		default:
			s.Advance()
		}
	}
}

// play runs one clip under a cancelable context so SetClips can interrupt.
func (s *Sequencer) play(ctx context.Context, clip Clip) error {
	playCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancelPlay = cancel
	s.mu.Unlock()

	err := s.playback.Play(playCtx, clip.URL)

	s.mu.Lock()
	s.cancelPlay = nil
	s.mu.Unlock()

	cancel()

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// waitEmpty handles an empty store: hold for the reset countdown, then try
// a fresh fetch.
func (s *Sequencer) waitEmpty(ctx context.Context) {
	s.setState(StateEmpty)
	s.logger.Info().Dur("countdown", s.cfg.ResetCountdown()).Msg("No clips available, waiting")

	s.sleep(ctx, s.cfg.ResetCountdown())

	s.refresh(ctx)
}

func (s *Sequencer) refreshLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.refresh(ctx)
		}
	}
}

// refresh pulls the clip list from the source. Fetch failures keep the
// current list; an unreachable store should not blank a working screen.
func (s *Sequencer) refresh(ctx context.Context) {
	clips, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Clip list refresh failed")

		return
	}

	s.SetClips(clips)
}

func (s *Sequencer) consumeReload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	reloaded := s.reloaded
	s.reloaded = false

	return reloaded
}

func (s *Sequencer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-s.clock.After(d):
	}
}
