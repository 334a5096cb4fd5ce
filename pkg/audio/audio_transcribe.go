package pkg_audio

import (
	"context"
	"io"
	"time"
)

const (
	// SampleRate is the only rate the engine accepts.
	SampleRate = 16000

	DefaultBeamSize = 5
)

// Segment is one span of recognized text, in utterance order.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// TranscribeInfo is auxiliary metadata returned with the segments.
type TranscribeInfo struct {
	Language string
	Duration time.Duration
}

type TranscribeOptions struct {
	BeamSize int
	Language string
}

// Transcriber turns one complete utterance into ordered segments. Calls block
// until the result is ready or ctx is done. Implementations must be safe for
// use by many sessions at once.
type Transcriber interface {
	Transcribe(ctx context.Context, sessionID string, audio io.ReadSeeker, opts TranscribeOptions) ([]Segment, TranscribeInfo, error)
}

// TranscribeRequest represents a request to transcribe audio
type TranscribeRequest struct {
	Audio     io.ReadSeeker
	Options   TranscribeOptions
	Resp      chan<- *TranscribeResult
	Ctx       context.Context
	SessionID string
}

// TranscribeResult is the result of transcription
type TranscribeResult struct {
	Segments []Segment
	Info     TranscribeInfo
	Err      error
}

// SegmentTexts returns the text of each segment in order.
func SegmentTexts(segments []Segment) []string {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return texts
}
