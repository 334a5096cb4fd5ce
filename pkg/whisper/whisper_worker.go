package pkg_whisper

import (
	"fmt"
	"io"
	"sync"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"go.uber.org/zap"

	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
)

// WhisperWorkerPool starts numWorkers goroutines that serve reqChan until it is closed.
// we pass a *sync.Mutex to ensure only one inference runs at a time, prevent external lib SIGSEGV
func WhisperWorkerPool(model whisper.Model, reqChan <-chan *pkg_audio.TranscribeRequest, numWorkers int, inferenceMu *sync.Mutex, language string, logger *zap.Logger) error {
	// contexts are created up front so a broken model fails startup instead of a worker
	contexts := make([]whisper.Context, numWorkers)
	for i := range contexts {
		ctx, err := model.NewContext()
		if err != nil {
			return fmt.Errorf("worker #%d failed to create whisper context: %w", i, err)
		}
		if err := ctx.SetLanguage(language); err != nil {
			return fmt.Errorf("worker #%d set language %q: %w", i, language, err)
		}
		ctx.SetTranslate(false)
		contexts[i] = ctx
	}

	for i, ctx := range contexts {
		go func(workerID int, wctx whisper.Context) {
			log := logger.With(zap.Int("worker", workerID))
			log.Info("worker started")

			for req := range reqChan {
				select {
				case <-req.Ctx.Done():
					log.Info("context cancelled", zap.String("session_id", req.SessionID))
					continue
				default:
					// proceed
				}

				res := process(wctx, req, inferenceMu)
				if res.Err != nil {
					log.Warn("transcription failed", zap.String("session_id", req.SessionID), zap.Error(res.Err))
				}

				// resp is buffered by the submitter, if full just log
				select {
				case req.Resp <- res:
				default:
					log.Warn("failed to send result (chan full)", zap.String("session_id", req.SessionID))
				}
			}
			log.Info("worker stopped")
		}(i, ctx)
	}

	return nil
}

func process(wctx whisper.Context, req *pkg_audio.TranscribeRequest, inferenceMu *sync.Mutex) *pkg_audio.TranscribeResult {
	size, err := req.Audio.Seek(0, io.SeekEnd)
	if err != nil {
		return &pkg_audio.TranscribeResult{Err: fmt.Errorf("audio seek: %w", err)}
	}
	if size == 0 {
		return &pkg_audio.TranscribeResult{Segments: []pkg_audio.Segment{}}
	}
	if _, err := req.Audio.Seek(0, io.SeekStart); err != nil {
		return &pkg_audio.TranscribeResult{Err: fmt.Errorf("audio seek: %w", err)}
	}

	// cpu bound: decode and convert
	// - parallel safe
	// - do outside the lock to maximize concurrency
	samples, format, err := pkg_audio.DecodeWAV(req.Audio)
	if err != nil {
		return &pkg_audio.TranscribeResult{Err: fmt.Errorf("audio conversion: %w", err)}
	}
	if format.SampleRate != pkg_audio.SampleRate {
		return &pkg_audio.TranscribeResult{Err: fmt.Errorf("%w: sample rate %d, want %d", pkg_audio.ErrUnsupportedFormat, format.SampleRate, pkg_audio.SampleRate)}
	}

	info := pkg_audio.TranscribeInfo{
		Duration: time.Duration(len(samples)) * time.Second / time.Duration(pkg_audio.SampleRate),
	}
	if len(samples) == 0 {
		return &pkg_audio.TranscribeResult{Segments: []pkg_audio.Segment{}, Info: info}
	}

	if req.Options.BeamSize > 0 {
		wctx.SetBeamSize(req.Options.BeamSize)
	}
	if req.Options.Language != "" && req.Options.Language != wctx.Language() {
		if err := wctx.SetLanguage(req.Options.Language); err != nil {
			return &pkg_audio.TranscribeResult{Err: fmt.Errorf("set language %q: %w", req.Options.Language, err)}
		}
	}

	segments := []pkg_audio.Segment{}
	segmentCallback := func(segment whisper.Segment) {
		segments = append(segments, pkg_audio.Segment{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}

	// cgo bound: inference (critical)
	// - gglm whisper is not thread safe
	// - concurrent process calls on the same backend state
	inferenceMu.Lock()
	err = wctx.Process(samples, nil, segmentCallback, nil)
	if err == nil {
		info.Language = wctx.DetectedLanguage()
	}
	inferenceMu.Unlock()

	if err != nil {
		return &pkg_audio.TranscribeResult{Err: fmt.Errorf("whisper process: %w", err)}
	}

	return &pkg_audio.TranscribeResult{Segments: segments, Info: info}
}
