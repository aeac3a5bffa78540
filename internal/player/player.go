package player

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	bytesPerSample = 4 // float32
	frameBytes     = playbackChannels * bytesPerSample
	monitorEvery   = 50 * time.Millisecond
)

// pcmReader serves a Buffer to Oto as float32 little-endian bytes and
// tracks how far it has been read.
type pcmReader struct {
	buf *Buffer
	pos int64 // bytes
	mu  sync.Mutex
}

func (r *pcmReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := int64(len(r.buf.Samples)) * bytesPerSample
	if r.pos >= total {
		return 0, io.EOF
	}
	n := len(p) - len(p)%bytesPerSample
	if rem := total - r.pos; int64(n) > rem {
		n = int(rem)
	}
	first := r.pos / bytesPerSample
	for i := 0; i < n; i += bytesPerSample {
		s := r.buf.Samples[first+int64(i/bytesPerSample)]
		binary.LittleEndian.PutUint32(p[i:], math.Float32bits(s))
	}
	r.pos += int64(n)
	return n, nil
}

func (r *pcmReader) Pos() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

func (r *pcmReader) Len() int64 {
	return int64(len(r.buf.Samples)) * bytesPerSample
}

// Player plays one decoded stem through the shared Oto context. It never
// loops and does not start until Play is called.
type Player struct {
	buffer    *Buffer
	reader    *pcmReader
	otoPlayer *oto.Player
	volume    float64
	started   bool
	paused    bool
	done      chan struct{}
	stopMon   chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   PlaybackRate,
			ChannelCount: playbackChannels,
			Format:       oto.FormatFloat32LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// New creates a paused Player for buf.
func New(buf *Buffer) (*Player, error) {
	if buf.Frames() == 0 {
		return nil, ErrEmptyStem
	}
	ctx, err := initOto()
	if err != nil {
		return nil, err
	}

	r := &pcmReader{buf: buf}
	p := &Player{
		buffer:  buf,
		reader:  r,
		volume:  1,
		paused:  true,
		done:    make(chan struct{}),
		stopMon: make(chan struct{}),
	}
	p.otoPlayer = ctx.NewPlayer(r)
	p.otoPlayer.SetVolume(p.volume)
	return p, nil
}

// Play starts or resumes playback.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused || p.otoPlayer == nil {
		return
	}
	p.otoPlayer.Play()
	p.paused = false
	if !p.started {
		p.started = true
		go p.monitor()
	}
}

// Pause halts playback; Play resumes from the same position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	if p.otoPlayer != nil {
		p.otoPlayer.Pause()
	}
	p.paused = true
}

// Playing reports whether the stem is started, not paused and not finished.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.paused {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Player) monitor() {
	ticker := time.NewTicker(monitorEvery)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopMon:
			return
		case <-ticker.C:
		}
		p.mu.Lock()
		finished := !p.paused && p.reader.Pos() >= p.reader.Len() && p.otoPlayer.BufferedSize() == 0
		p.mu.Unlock()
		if finished {
			close(p.done)
			return
		}
	}
}

// Done returns a channel that closes when playback reaches the end.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

// Position returns the audible position, excluding what Oto still buffers.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return framesToDuration(p.frameLocked())
}

func (p *Player) frameLocked() int64 {
	pos := p.reader.Pos()
	if p.otoPlayer != nil {
		pos -= int64(p.otoPlayer.BufferedSize())
	}
	if pos < 0 {
		pos = 0
	}
	return pos / frameBytes
}

// Duration returns the stem length.
func (p *Player) Duration() time.Duration {
	return p.buffer.Duration()
}

// Samples fills dst with the mono window ending at the play head.
func (p *Player) Samples(dst []float32) int {
	p.mu.Lock()
	frame := p.frameLocked()
	p.mu.Unlock()
	return p.buffer.MonoWindow(dst, frame)
}

// Volume returns current volume (0.0 to 1.0).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets volume (clamped to 0.0 - 1.0).
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v = math.Max(0, math.Min(v, 1))
	p.volume = v
	if p.otoPlayer != nil {
		p.otoPlayer.SetVolume(v)
	}
}

// Close stops playback and the end monitor.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.otoPlayer != nil {
			p.otoPlayer.Pause()
			_ = p.otoPlayer.Close()
		}
		p.paused = true
		if p.stopMon != nil {
			close(p.stopMon)
		}
	})
}

// Open decodes the stem at path and wraps it in a paused Player.
func Open(path string) (*Player, error) {
	buf, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return New(buf)
}
