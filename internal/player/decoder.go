package player

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned for file extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Decode reads a whole stem into memory, detecting the format by file
// extension.
func Decode(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		samples  []float32
		channels int
		rate     int
	)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		samples, rate, err = decodeMP3(f)
		channels = 2
	case ".wav":
		samples, channels, rate, err = decodeWAV(f)
	case ".flac":
		samples, channels, rate, err = decodeFLAC(f)
	case ".ogg":
		samples, channels, rate, err = decodeOGG(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return newBuffer(samples, channels, rate)
}

// decodeMP3 returns stereo samples with the encoder delay and padding from
// the LAME header removed.
func decodeMP3(f io.ReadSeeker) ([]float32, int, error) {
	trim := readGaplessTrim(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}

	samples := s16leToFloat(raw)
	return trim.apply(samples, 2), dec.SampleRate(), nil
}

func decodeWAV(f io.ReadSeeker) ([]float32, int, int, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading WAV PCM data: %w", err)
	}
	return intBufferToFloat(buf), buf.Format.NumChannels, buf.Format.SampleRate, nil
}

func intBufferToFloat(buf *audio.IntBuffer) []float32 {
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	out := make([]float32, len(buf.Data))
	if depth == 8 {
		// 8-bit WAV is unsigned
		for i, v := range buf.Data {
			out[i] = float32(v-128) / 128
		}
		return out
	}
	scale := float32(int64(1) << (depth - 1))
	for i, v := range buf.Data {
		out[i] = float32(v) / scale
	}
	return out
}

func decodeFLAC(r io.Reader) ([]float32, int, int, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, 0, 0, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))
	out := make([]float32, 0, int(stream.Info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, err
		}
		n := int(frame.Subframes[0].NSamples)
		for i := range n {
			for ch := range channels {
				out = append(out, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}
	return out, channels, int(stream.Info.SampleRate), nil
}

func decodeOGG(r io.Reader) ([]float32, int, int, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, 0, 0, err
	}
	return samples, format.Channels, format.SampleRate, nil
}

func s16leToFloat(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		v := int16(uint16(raw[i*2]) | uint16(raw[i*2+1])<<8)
		out[i] = float32(v) / 32768
	}
	return out
}
