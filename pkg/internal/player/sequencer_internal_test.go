package player

import (
	"testing"

	"github.com/tvloop/tvloop/pkg/configs"
)

func internalPlayerConfig() *configs.PlayerConfig {
	return &configs.PlayerConfig{
		RetryDelaySeconds:     2,
		ResetCountdownSeconds: 10,
		RefreshSeconds:        30,
		Command:               "mpv",
	}
}

func TestSetClipsBetweenPlaysLeavesNoPendingReload(t *testing.T) {
	s := NewSequencer(nil, nil, internalPlayerConfig(), nil)

	s.SetClips([]Clip{{Filename: "video1.mp4"}, {Filename: "video2.mp4"}, {Filename: "video3.mp4"}})
	s.Advance() // on video2

	// Current clip removed while nothing is playing: the index reset is
	// the whole story, no reload may be latched for the next completion.
	s.SetClips([]Clip{{Filename: "video3.mp4"}})

	if s.consumeReload() {
		t.Error("reload latched with no play in flight")
	}

	if cur, ok := s.Current(); !ok || cur.Filename != "video3.mp4" {
		t.Errorf("Current = %v, want video3.mp4", cur)
	}
}

func TestSetClipsDuringPlayCancelsAndReloads(t *testing.T) {
	s := NewSequencer(nil, nil, internalPlayerConfig(), nil)

	s.SetClips([]Clip{{Filename: "video1.mp4"}, {Filename: "video2.mp4"}})

	canceled := false

	s.mu.Lock()
	s.cancelPlay = func() { canceled = true }
	s.mu.Unlock()

	s.SetClips([]Clip{{Filename: "video2.mp4"}})

	if !canceled {
		t.Error("in-flight playback for a removed clip was not canceled")
	}

	if !s.consumeReload() {
		t.Error("reload not latched for the canceled play")
	}

	if cur, ok := s.Current(); !ok || cur.Filename != "video2.mp4" {
		t.Errorf("Current = %v, want the new head video2.mp4", cur)
	}
}
