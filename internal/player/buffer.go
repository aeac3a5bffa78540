package player

import (
	"errors"
	"time"
)

const (
	// PlaybackRate is the sample rate every stem is converted to so all
	// stems share one output context.
	PlaybackRate     = 48000
	playbackChannels = 2
)

// ErrEmptyStem is returned when a file decodes to no audio.
var ErrEmptyStem = errors.New("stem contains no audio")

// Buffer is a fully decoded stem: interleaved stereo float32 samples at
// PlaybackRate.
type Buffer struct {
	Samples []float32
}

// Frames returns the number of stereo frames.
func (b *Buffer) Frames() int64 {
	if b == nil {
		return 0
	}
	return int64(len(b.Samples) / playbackChannels)
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	return framesToDuration(b.Frames())
}

// MonoWindow fills dst with the mono mix of the frames just before frame
// end, oldest first. Frames before the start of the stem read as silence.
func (b *Buffer) MonoWindow(dst []float32, end int64) int {
	n := len(dst)
	start := end - int64(n)
	total := b.Frames()
	for i := range n {
		f := start + int64(i)
		if f < 0 || f >= total {
			dst[i] = 0
			continue
		}
		l := b.Samples[f*playbackChannels]
		r := b.Samples[f*playbackChannels+1]
		dst[i] = (l + r) / 2
	}
	return n
}

func framesToDuration(frames int64) time.Duration {
	return time.Duration(float64(frames) / PlaybackRate * float64(time.Second))
}

// newBuffer converts interleaved samples with the given layout into a
// stereo Buffer at PlaybackRate.
func newBuffer(samples []float32, channels, rate int) (*Buffer, error) {
	if channels < 1 || rate <= 0 {
		return nil, errors.New("invalid stream layout")
	}
	stereo := toStereo(samples, channels)
	if len(stereo) == 0 {
		return nil, ErrEmptyStem
	}
	if rate != PlaybackRate {
		stereo = resample(stereo, rate, PlaybackRate)
	}
	return &Buffer{Samples: stereo}, nil
}

// toStereo duplicates mono and keeps the first two channels of anything
// wider.
func toStereo(samples []float32, channels int) []float32 {
	if channels == playbackChannels {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames*playbackChannels)
	for i := range frames {
		l := samples[i*channels]
		r := l
		if channels > 1 {
			r = samples[i*channels+1]
		}
		out[i*2] = l
		out[i*2+1] = r
	}
	return out
}

// resample converts interleaved stereo by linear interpolation.
func resample(stereo []float32, from, to int) []float32 {
	srcFrames := int64(len(stereo) / playbackChannels)
	if srcFrames == 0 {
		return nil
	}
	outFrames := srcFrames * int64(to) / int64(from)
	if outFrames == 0 {
		outFrames = 1
	}
	out := make([]float32, outFrames*playbackChannels)
	step := float64(from) / float64(to)
	for i := range outFrames {
		pos := float64(i) * step
		j := int64(pos)
		frac := float32(pos - float64(j))
		k := j + 1
		if k >= srcFrames {
			k = srcFrames - 1
		}
		if j >= srcFrames {
			j = srcFrames - 1
		}
		for ch := range int64(playbackChannels) {
			a := stereo[j*playbackChannels+ch]
			b := stereo[k*playbackChannels+ch]
			out[i*playbackChannels+ch] = a + (b-a)*frac
		}
	}
	return out
}
