package pkg_ws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	pkg "showcase-backend-audio_relay-go/pkg"
	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
	pkg_metrics "showcase-backend-audio_relay-go/pkg/metrics"
)

const (
	StateAccumulating = "accumulating"
	StateTranscribing = "transcribing"
	StateClosed       = "closed"

	EventTranscribe = "transcribe"
	EventReset      = "reset"
	EventClose      = "close"

	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

var ErrBufferOverflow = errors.New("utterance exceeds buffer limit")

type SessionOptions struct {
	MaxFrameBytes     int64
	MaxBufferBytes    int
	IdleTimeout       time.Duration
	TranscribeTimeout time.Duration
	Transcribe        pkg_audio.TranscribeOptions
}

// Session owns one connection and its utterance buffer. All of its methods
// run on the goroutine that called Run.
type Session struct {
	ID string

	conn    *websocket.Conn
	buffer  bytes.Buffer
	state   *fsm.FSM
	frames  int
	engine  pkg_audio.Transcriber
	opts    SessionOptions
	metrics *pkg_metrics.Metrics
	logger  *zap.Logger
}

func NewSession(conn *websocket.Conn, engine pkg_audio.Transcriber, opts SessionOptions, metrics *pkg_metrics.Metrics, logger *zap.Logger) *Session {
	id := uuid.New()
	if v7, err := uuid.NewV7(); err == nil {
		id = v7
	}

	s := &Session{
		ID:      id.String(),
		conn:    conn,
		engine:  engine,
		opts:    opts,
		metrics: metrics,
	}
	s.logger = logger.With(zap.String("session_id", s.ID))

	s.state = fsm.NewFSM(
		StateAccumulating,
		fsm.Events{
			{Name: EventTranscribe, Src: []string{StateAccumulating}, Dst: StateTranscribing},
			{Name: EventReset, Src: []string{StateTranscribing}, Dst: StateAccumulating},
			{Name: EventClose, Src: []string{StateAccumulating, StateTranscribing}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.logger.Debug("session state", zap.String("from", e.Src), zap.String("to", e.Dst))
			},
		},
	)

	return s
}

func (s *Session) State() string {
	return s.state.Current()
}

// Run serves the connection until the peer leaves, a limit is hit or ctx is
// done. The connection is closed on every return path.
func (s *Session) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})

	defer func() {
		stop()
		s.buffer.Reset()
		_ = s.state.Event(context.Background(), EventClose)
		s.conn.Close()
	}()

	if s.opts.MaxFrameBytes > 0 {
		s.conn.SetReadLimit(s.opts.MaxFrameBytes)
	}

	s.logger.Info("new client connected", zap.String("remote", s.conn.RemoteAddr().String()))

	reason := s.serve(ctx)
	s.metrics.SessionsClosed.WithLabelValues(reason).Inc()
	s.logger.Info("session closed",
		zap.String("reason", reason),
		zap.Int("pending_bytes", s.buffer.Len()),
		zap.Int("pending_frames", s.frames))
}

func (s *Session) serve(ctx context.Context) string {
	for {
		if s.opts.IdleTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout))
		}

		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			return s.readFailure(ctx, err)
		}

		switch messageType {
		case websocket.BinaryMessage:
			if err := s.appendFrame(message); err != nil {
				s.rejectOverflow()
				return "buffer_overflow"
			}
		case websocket.TextMessage:
			if string(message) != pkg.Sentinel {
				s.metrics.IgnoredMessages.Inc()
				s.logger.Debug("ignoring text message", zap.Int("bytes", len(message)))
				continue
			}
			if err := s.flush(ctx); err != nil {
				if ctx.Err() != nil {
					return "shutdown"
				}
				s.logger.Warn("reply failed", zap.Error(err))
				return "write_failed"
			}
		}
	}
}

func (s *Session) appendFrame(frame []byte) error {
	if s.opts.MaxBufferBytes > 0 && s.buffer.Len()+len(frame) > s.opts.MaxBufferBytes {
		return ErrBufferOverflow
	}

	s.buffer.Write(frame)
	s.frames++
	s.metrics.FramesReceived.Inc()
	s.metrics.BytesReceived.Add(float64(len(frame)))
	return nil
}

// flush hands the buffered utterance to the engine and sends exactly one
// reply. The buffer is empty again before the engine is called.
func (s *Session) flush(ctx context.Context) error {
	if err := s.state.Event(ctx, EventTranscribe); err != nil {
		return fmt.Errorf("enter transcribing: %w", err)
	}

	utterance := make([]byte, s.buffer.Len())
	copy(utterance, s.buffer.Bytes())
	frames := s.frames
	s.buffer.Reset()
	s.frames = 0

	s.metrics.Utterances.Inc()
	s.metrics.UtteranceBytes.Observe(float64(len(utterance)))

	tctx := ctx
	if s.opts.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, s.opts.TranscribeTimeout)
		defer cancel()
	}

	start := time.Now()
	segments, info, err := s.engine.Transcribe(tctx, s.ID, bytes.NewReader(utterance), s.opts.Transcribe)
	elapsed := time.Since(start)
	s.metrics.TranscriptionDuration.Observe(elapsed.Seconds())

	var reply string
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.metrics.TranscriptionFailures.Inc()
		s.logger.Warn("transcription failed",
			zap.Int("bytes", len(utterance)),
			zap.Int("frames", frames),
			zap.Error(err))
		reply = pkg.ErrorReplyPrefix + err.Error()
	} else {
		s.metrics.TranscriptionSegments.Observe(float64(len(segments)))
		reply = pkg.JoinSegments(pkg_audio.SegmentTexts(segments))
		s.logger.Info("processed utterance",
			zap.Int("bytes", len(utterance)),
			zap.Int("frames", frames),
			zap.Int("segments", len(segments)),
			zap.String("language", info.Language),
			zap.Duration("audio", info.Duration),
			zap.Duration("duration", elapsed))
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	if err := s.state.Event(ctx, EventReset); err != nil {
		return fmt.Errorf("leave transcribing: %w", err)
	}
	return nil
}

func (s *Session) rejectOverflow() {
	s.metrics.BufferOverflows.Inc()
	s.logger.Warn("buffer overflow, closing",
		zap.Int("bytes", s.buffer.Len()),
		zap.Int("limit", s.opts.MaxBufferBytes))

	msg := websocket.FormatCloseMessage(websocket.CloseMessageTooBig,
		fmt.Sprintf("utterance exceeds %d bytes", s.opts.MaxBufferBytes))
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		s.logger.Debug("write close frame", zap.Error(err))
	}
}

func (s *Session) readFailure(ctx context.Context, err error) string {
	var netErr net.Error
	switch {
	case ctx.Err() != nil:
		return "shutdown"
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.logger.Info("client disconnected")
		return "client_closed"
	case errors.Is(err, websocket.ErrReadLimit):
		s.logger.Warn("frame too large", zap.Int64("limit", s.opts.MaxFrameBytes))
		return "frame_too_large"
	case errors.As(err, &netErr) && netErr.Timeout():
		s.logger.Info("idle timeout", zap.Duration("timeout", s.opts.IdleTimeout))
		return "idle_timeout"
	default:
		s.logger.Warn("connection lost", zap.Error(err))
		return "disconnect"
	}
}
