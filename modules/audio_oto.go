//go:build !headless

// audio_oto.go - oto/v3 backed AudioModule
//
// License: GPLv3 or later

package modules

import (
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// ringCapacity is the number of stereo frames the output ring holds
// before Play starts overwriting the oldest unread frame, matching
// the bounded-buffer shape audio_backend_oto.go uses for its mono
// float32 ring.
const ringCapacity = 8192

// OtoAudio is an AudioModule backed by an oto/v3 output stream. Where
// audio_backend_oto.go plays a single float32 mono channel drained
// from a SoundChip's ring buffer, this adapter plays signed 16-bit
// stereo frames drained from its own ring, since the Audio Interface
// produces {left, right} pairs rather than one mixed channel.
type OtoAudio struct {
	ctx    *oto.Context
	player *oto.Player

	mu     sync.Mutex
	ring   []AudioFrame
	head   int
	tail   int
	filled int

	rate atomic.Int32
}

// NewOtoAudio opens an oto context at rate and starts a player pulling
// from this adapter's ring.
func NewOtoAudio(rate SampleRate) (*OtoAudio, error) {
	options := &oto.NewContextOptions{
		SampleRate:   int(rate),
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   0,
	}
	ctx, ready, err := oto.NewContext(options)
	if err != nil {
		return nil, err
	}
	<-ready

	a := &OtoAudio{ctx: ctx, ring: make([]AudioFrame, ringCapacity)}
	a.rate.Store(int32(rate))
	a.player = ctx.NewPlayer(a)
	a.player.Play()
	return a, nil
}

// SetSampleRate records the configured rate. oto's own output rate is
// fixed at context creation, matching how the real AI only ever
// resamples into the host's native rate rather than reopening a
// stream per guest rate change.
func (a *OtoAudio) SetSampleRate(rate SampleRate) { a.rate.Store(int32(rate)) }

// Play enqueues one stereo frame, dropping the oldest unread frame if
// the ring is full rather than blocking the CPU thread.
func (a *OtoAudio) Play(frame AudioFrame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring[a.tail] = frame
	a.tail = (a.tail + 1) % len(a.ring)
	if a.filled == len(a.ring) {
		a.head = (a.head + 1) % len(a.ring)
	} else {
		a.filled++
	}
}

// Read implements io.Reader for oto's pull-based player, draining
// queued frames as little-endian s16 stereo pairs and padding with
// silence once the ring runs dry.
func (a *OtoAudio) Read(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(p) / 4
	for i := 0; i < n; i++ {
		var frame AudioFrame
		if a.filled > 0 {
			frame = a.ring[a.head]
			a.head = (a.head + 1) % len(a.ring)
			a.filled--
		}
		off := i * 4
		p[off] = byte(frame.Left)
		p[off+1] = byte(frame.Left >> 8)
		p[off+2] = byte(frame.Right)
		p[off+3] = byte(frame.Right >> 8)
	}
	return n * 4, nil
}

// Close stops playback and releases the oto player.
func (a *OtoAudio) Close() {
	if a.player != nil {
		a.player.Close()
	}
}
