package pkg

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// whisper emits this marker for segments without speech
const blankAudioMarker = "[BLANK_AUDIO]"

func BytesToInt16Slice(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("data length must be even for 16-bit audio")
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples, nil
}

func Int16SliceToBytes(data []int16) []byte {
	bytes := make([]byte, len(data)*2)
	for i, v := range data {
		bytes[i*2] = byte(v)
		bytes[i*2+1] = byte(v >> 8)
	}
	return bytes
}

// PCMToFloat32 scales signed integer samples of the given bit depth into [-1, 1).
func PCMToFloat32(data []int, bitDepth int) ([]float32, error) {
	if bitDepth <= 0 || bitDepth > 32 || bitDepth%8 != 0 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	scale := float32(int64(1) << (bitDepth - 1))
	floats := make([]float32, len(data))
	for i, v := range data {
		floats[i] = float32(v) / scale
	}
	return floats, nil
}

// JoinSegments joins transcript segments with a single space. Segments are
// trimmed first; empty ones and blank-audio markers are skipped.
func JoinSegments(segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" || s == blankAudioMarker {
			continue
		}
		parts = append(parts, s)
	}
	return norm.NFC.String(strings.Join(parts, " "))
}
