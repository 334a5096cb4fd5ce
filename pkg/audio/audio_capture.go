package pkg_audio

import (
	"errors"
	"time"

	"github.com/smallnest/ringbuffer"

	pkg "showcase-backend-audio_relay-go/pkg"
)

// CaptureBuffer collects 16-bit samples up to a fixed duration. Writes past the
// cap are dropped. It is safe to write from an audio callback while another
// goroutine checks Full.
type CaptureBuffer struct {
	rb         *ringbuffer.RingBuffer
	sampleRate int
	channels   int
}

func NewCaptureBuffer(maxDuration time.Duration, sampleRate, channels int) *CaptureBuffer {
	// 16 bit = 2 bytes per sample
	size := int(maxDuration.Seconds()*float64(sampleRate)) * channels * 2
	if size < 2 {
		size = 2
	}
	return &CaptureBuffer{
		rb:         ringbuffer.New(size).SetBlocking(false),
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Write appends samples and reports whether the buffer is now full.
func (c *CaptureBuffer) Write(samples []int16) bool {
	if len(samples) == 0 {
		return c.rb.IsFull()
	}
	_, err := c.rb.Write(pkg.Int16SliceToBytes(samples))
	if errors.Is(err, ringbuffer.ErrTooMuchDataToWrite) || errors.Is(err, ringbuffer.ErrIsFull) {
		return true
	}
	return c.rb.IsFull()
}

func (c *CaptureBuffer) Full() bool {
	return c.rb.IsFull()
}

func (c *CaptureBuffer) Duration() time.Duration {
	samples := c.rb.Length() / 2 / c.channels
	return time.Duration(samples) * time.Second / time.Duration(c.sampleRate)
}

// Drain returns every captured sample and empties the buffer.
func (c *CaptureBuffer) Drain() ([]int16, error) {
	if c.rb.IsEmpty() {
		return []int16{}, nil
	}
	data := make([]byte, c.rb.Length())
	n, err := c.rb.Read(data)
	if err != nil {
		return nil, err
	}
	return pkg.BytesToInt16Slice(data[:n])
}
