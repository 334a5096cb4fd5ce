package pkg_relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	pkg "showcase-backend-audio_relay-go/pkg"
)

// ErrServerError is returned when the relay answers with an error reply.
var ErrServerError = errors.New("relay error")

type Client struct {
	URL       string
	ChunkSize int
	Dialer    *websocket.Dialer
	logger    *zap.Logger
}

func NewClient(url string, logger *zap.Logger) *Client {
	return &Client{
		URL:       url,
		ChunkSize: pkg.ChunkSize,
		Dialer:    websocket.DefaultDialer,
		logger:    logger,
	}
}

// Conn is one open relay session.
type Conn struct {
	ws        *websocket.Conn
	chunkSize int
	logger    *zap.Logger
}

func (c *Client) Dial(ctx context.Context) (*Conn, error) {
	ws, _, err := c.Dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.URL, err)
	}

	chunkSize := c.ChunkSize
	if chunkSize <= 0 {
		chunkSize = pkg.ChunkSize
	}

	c.logger.Debug("connected", zap.String("url", c.URL))
	return &Conn{ws: ws, chunkSize: chunkSize, logger: c.logger}, nil
}

// SendUtterance streams r as binary frames, sends the end marker and waits for
// the single reply. An error reply is returned as ErrServerError. The
// connection is closed if ctx ends first.
func (c *Conn) SendUtterance(ctx context.Context, r io.Reader) (string, error) {
	stop := context.AfterFunc(ctx, func() {
		c.ws.Close()
	})
	defer stop()

	reply, err := c.exchange(r)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	return reply, err
}

func (c *Conn) exchange(r io.Reader) (string, error) {
	chunk := make([]byte, c.chunkSize)
	frames, total := 0, 0
	for {
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			if werr := c.ws.WriteMessage(websocket.BinaryMessage, chunk[:n]); werr != nil {
				return "", fmt.Errorf("send frame %d: %w", frames, werr)
			}
			frames++
			total += n
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read audio: %w", err)
		}
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(pkg.Sentinel)); err != nil {
		return "", fmt.Errorf("send end marker: %w", err)
	}
	c.logger.Debug("utterance sent", zap.Int("frames", frames), zap.Int("bytes", total))

	for {
		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("read reply: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		reply := string(message)
		if strings.HasPrefix(reply, pkg.ErrorReplyPrefix) {
			return "", fmt.Errorf("%w: %s", ErrServerError, strings.TrimPrefix(reply, pkg.ErrorReplyPrefix))
		}
		return reply, nil
	}
}

// Close sends a normal close frame and releases the connection.
func (c *Conn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := c.ws.Close(); err != nil {
		return err
	}
	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return fmt.Errorf("write close: %w", werr)
	}
	return nil
}

// Transcribe sends one utterance over a fresh connection and closes it.
func (c *Client) Transcribe(ctx context.Context, r io.Reader) (string, error) {
	conn, err := c.Dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	return conn.SendUtterance(ctx, r)
}
