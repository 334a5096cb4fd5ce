package pkg_whisper

import (
	"context"
	"io"

	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
)

// Pool submits utterances to the worker pool and waits for the answer.
type Pool struct {
	reqChan chan<- *pkg_audio.TranscribeRequest
}

func NewPool(reqChan chan<- *pkg_audio.TranscribeRequest) *Pool {
	return &Pool{reqChan: reqChan}
}

func (p *Pool) Transcribe(ctx context.Context, sessionID string, audio io.ReadSeeker, opts pkg_audio.TranscribeOptions) ([]pkg_audio.Segment, pkg_audio.TranscribeInfo, error) {
	respChan := make(chan *pkg_audio.TranscribeResult, 1)
	req := &pkg_audio.TranscribeRequest{
		Audio:     audio,
		Options:   opts,
		Resp:      respChan,
		Ctx:       ctx,
		SessionID: sessionID,
	}

	select {
	case p.reqChan <- req:
		// request queued
	case <-ctx.Done():
		return nil, pkg_audio.TranscribeInfo{}, ctx.Err()
	}

	select {
	case res := <-respChan:
		return res.Segments, res.Info, res.Err
	case <-ctx.Done():
		return nil, pkg_audio.TranscribeInfo{}, ctx.Err()
	}
}
