package pkg_whisper

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
)

func TestPoolTranscribe(t *testing.T) {
	reqChan := make(chan *pkg_audio.TranscribeRequest)
	pool := NewPool(reqChan)

	go func() {
		req := <-reqChan
		data, _ := io.ReadAll(req.Audio)
		req.Resp <- &pkg_audio.TranscribeResult{
			Segments: []pkg_audio.Segment{{Text: string(data)}},
			Info:     pkg_audio.TranscribeInfo{Language: req.Options.Language},
		}
	}()

	segments, info, err := pool.Transcribe(context.Background(), "s1", bytes.NewReader([]byte("hi")),
		pkg_audio.TranscribeOptions{BeamSize: 5, Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "hi" {
		t.Errorf("segments = %+v, want one segment %q", segments, "hi")
	}
	if info.Language != "en" {
		t.Errorf("language = %q, want en", info.Language)
	}
}

func TestPoolTranscribeWorkerError(t *testing.T) {
	reqChan := make(chan *pkg_audio.TranscribeRequest, 1)
	pool := NewPool(reqChan)
	wantErr := errors.New("boom")

	go func() {
		req := <-reqChan
		req.Resp <- &pkg_audio.TranscribeResult{Err: wantErr}
	}()

	if _, _, err := pool.Transcribe(context.Background(), "s1", bytes.NewReader(nil), pkg_audio.TranscribeOptions{}); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestPoolTranscribeQueueFull(t *testing.T) {
	// nobody reads the queue
	pool := NewPool(make(chan *pkg_audio.TranscribeRequest))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := pool.Transcribe(ctx, "s1", bytes.NewReader(nil), pkg_audio.TranscribeOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestPoolTranscribeNoAnswer(t *testing.T) {
	// queued but never answered
	reqChan := make(chan *pkg_audio.TranscribeRequest, 1)
	pool := NewPool(reqChan)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := pool.Transcribe(ctx, "s1", bytes.NewReader(nil), pkg_audio.TranscribeOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", err)
	}
	if len(reqChan) != 1 {
		t.Errorf("request was not queued")
	}
}
