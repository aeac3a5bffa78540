package player

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const mp3DecoderDelay = 529

// gaplessTrim is the number of frames to drop at each end of a decoded MP3.
type gaplessTrim struct {
	start int64
	end   int64
}

// apply drops the trimmed frames from interleaved samples. A trim longer
// than the stem leaves it untouched.
func (g gaplessTrim) apply(samples []float32, channels int) []float32 {
	frames := int64(len(samples) / channels)
	if g.start+g.end >= frames {
		return samples
	}
	return samples[g.start*int64(channels) : (frames-g.end)*int64(channels)]
}

// readGaplessTrim looks for a Xing/Info frame with a LAME extension after
// an optional ID3v2 tag. Missing or malformed headers give a zero trim.
func readGaplessTrim(r io.ReadSeeker) gaplessTrim {
	head := make([]byte, 10)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return gaplessTrim{}
	}
	if _, err := io.ReadFull(r, head); err != nil {
		return gaplessTrim{}
	}

	var frameStart int64
	if bytes.HasPrefix(head, []byte("ID3")) {
		frameStart = 10 + int64(synchsafe(head[6:10]))
		if head[5]&0x10 != 0 {
			frameStart += 10
		}
	}

	frame := make([]byte, 4+2+32+256)
	if _, err := r.Seek(frameStart, io.SeekStart); err != nil {
		return gaplessTrim{}
	}
	n, _ := io.ReadFull(r, frame)
	frame = frame[:n]

	skip, err := xingOffset(frame)
	if err != nil || skip > len(frame) {
		return gaplessTrim{}
	}
	trim, _ := parseLAMETrim(frame[skip:])
	return trim
}

func synchsafe(b []byte) int {
	return int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
}

// xingOffset returns where the Xing tag starts inside a layer III frame:
// the header, the optional CRC and the side information.
func xingOffset(frame []byte) (int, error) {
	if len(frame) < 4 {
		return 0, fmt.Errorf("short mp3 header")
	}
	h := binary.BigEndian.Uint32(frame)
	if h>>21 != 0x7ff {
		return 0, fmt.Errorf("invalid mp3 sync")
	}
	version := (h >> 19) & 0x3
	layer := (h >> 17) & 0x3
	if layer != 0x1 {
		return 0, fmt.Errorf("not layer iii")
	}
	if version == 0x1 {
		return 0, fmt.Errorf("reserved mpeg version")
	}

	mpeg1 := version == 0x3
	mono := (h>>6)&0x3 == 0x3
	side := 17
	if mpeg1 && !mono {
		side = 32
	} else if !mpeg1 && mono {
		side = 9
	}

	off := 4 + side
	if (h>>16)&0x1 == 0 {
		off += 2
	}
	return off, nil
}

// parseLAMETrim reads encoder delay and padding from a Xing/Info tag.
func parseLAMETrim(b []byte) (gaplessTrim, bool) {
	if len(b) < 8 {
		return gaplessTrim{}, false
	}
	if tag := string(b[:4]); tag != "Xing" && tag != "Info" {
		return gaplessTrim{}, false
	}

	flags := binary.BigEndian.Uint32(b[4:8])
	off := 8
	for _, f := range []struct {
		bit  uint32
		size int
	}{{0x1, 4}, {0x2, 4}, {0x4, 100}, {0x8, 4}} {
		if flags&f.bit != 0 {
			off += f.size
		}
	}
	if len(b) < off+24 {
		return gaplessTrim{}, false
	}

	dp := b[off+21 : off+24]
	delay := int64(dp[0])<<4 | int64(dp[1]>>4)
	padding := int64(dp[1]&0x0f)<<8 | int64(dp[2])
	if delay == 0 && padding == 0 {
		return gaplessTrim{}, false
	}

	return gaplessTrim{
		start: delay + mp3DecoderDelay,
		end:   max(padding-mp3DecoderDelay, 0),
	}, true
}
