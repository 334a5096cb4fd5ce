package pkg_audio

import (
	"testing"
	"time"
)

func TestCaptureBufferCap(t *testing.T) {
	// 1s at 10 Hz mono holds 10 samples
	c := NewCaptureBuffer(time.Second, 10, 1)

	if full := c.Write([]int16{1, 2, 3, 4, 5, 6}); full {
		t.Fatal("buffer reported full after 6 of 10 samples")
	}
	if full := c.Write([]int16{7, 8, 9, 10, 11, 12}); !full {
		t.Fatal("buffer should report full past the cap")
	}
	if !c.Full() {
		t.Error("Full() = false after cap reached")
	}
	if got := c.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}

	// later writes are dropped
	c.Write([]int16{99})

	samples, err := c.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(samples) != 10 {
		t.Fatalf("drained %d samples, want 10", len(samples))
	}
	for i, s := range samples {
		if s != int16(i+1) {
			t.Errorf("sample %d = %d, want %d", i, s, i+1)
		}
	}
}

func TestCaptureBufferDrainEmpty(t *testing.T) {
	c := NewCaptureBuffer(time.Second, SampleRate, 1)
	samples, err := c.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("drained %d samples from empty buffer", len(samples))
	}
	if c.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", c.Duration())
	}
}

func TestCaptureBufferDrainResets(t *testing.T) {
	c := NewCaptureBuffer(time.Second, 4, 2)
	c.Write([]int16{1, 2, 3, 4})

	if _, err := c.Drain(); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if c.Full() {
		t.Error("buffer still full after drain")
	}
	c.Write([]int16{5, 6})
	samples, _ := c.Drain()
	if len(samples) != 2 || samples[0] != 5 {
		t.Errorf("second drain = %v, want [5 6]", samples)
	}
}
