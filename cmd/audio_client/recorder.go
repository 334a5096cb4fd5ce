package main

import (
	"bufio"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
)

type recorder struct {
	device       *portaudio.DeviceInfo
	sampleRate   float64
	channels     int
	framesPerBuf int
	maxDuration  time.Duration
}

// Record captures from the input device until a line is read from stop.
// Audio past maxDuration is dropped.
func (r *recorder) Record(stop *bufio.Reader) ([]int16, error) {
	capture := pkg_audio.NewCaptureBuffer(r.maxDuration, int(r.sampleRate), r.channels)

	full := make(chan struct{})
	var fullOnce sync.Once

	paramsInput := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   r.device,
			Channels: r.channels,
			Latency:  r.device.DefaultLowInputLatency,
		},
		SampleRate:      r.sampleRate,
		FramesPerBuffer: r.framesPerBuf,
	}

	stream, err := portaudio.OpenStream(paramsInput, func(in []int16) {
		// keep the real-time callback non-blocking
		if capture.Write(in) {
			fullOnce.Do(func() { close(full) })
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open audio stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start audio stream: %w", err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-full:
			fmt.Printf("reached %s limit, press enter to send\n", r.maxDuration)
		case <-done:
		}
	}()

	fmt.Println("recording... press enter to stop")
	_, readErr := stop.ReadString('\n')
	close(done)

	if err := stream.Stop(); err != nil {
		return nil, fmt.Errorf("stop audio stream: %w", err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("read stop key: %w", readErr)
	}

	return capture.Drain()
}
