package pkg_audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"

	pkg "showcase-backend-audio_relay-go/pkg"
)

const (
	wavFormatPCM = 1
	bitDepth16   = 16
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// EncodeWAV packages interleaved 16-bit samples as a linear PCM RIFF/WAVE file.
func EncodeWAV(samples []int16, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid format: %d Hz, %d channels", sampleRate, channels)
	}

	ints := make([]int, len(samples))
	for i, s := range samples {
		ints[i] = int(s)
	}

	wavFile := &writerseeker.WriterSeeker{}
	encoder := wav.NewEncoder(wavFile, sampleRate, bitDepth16, channels, wavFormatPCM)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: bitDepth16,
	}
	if err := encoder.Write(buf); err != nil {
		return nil, fmt.Errorf("encoder write buffer: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoder close: %w", err)
	}

	riffWav, err := io.ReadAll(wavFile.Reader())
	if err != nil {
		return nil, fmt.Errorf("reading wav into memory: %w", err)
	}

	return riffWav, nil
}

// DecodeWAV reads a complete 16-bit PCM WAV file and returns its samples as
// mono float32 together with the source format. Multi-channel audio is
// averaged down.
func DecodeWAV(r io.ReadSeeker) ([]float32, audio.Format, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		if err := decoder.Err(); err != nil {
			return nil, audio.Format{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, audio.Format{}, fmt.Errorf("%w: not a wav file", ErrUnsupportedFormat)
	}

	format := audio.Format{NumChannels: int(decoder.NumChans), SampleRate: int(decoder.SampleRate)}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, format, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}
	// 8-bit wav is unsigned, only signed 16-bit is accepted
	if decoder.BitDepth != bitDepth16 {
		return nil, format, fmt.Errorf("%w: %d-bit samples, want %d", ErrUnsupportedFormat, decoder.BitDepth, bitDepth16)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, format, fmt.Errorf("read pcm: %w", err)
	}

	floats, err := pkg.PCMToFloat32(buf.Data, int(decoder.BitDepth))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	return downmix(floats, format.NumChannels), format, nil
}

func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
