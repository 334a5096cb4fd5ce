package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
	pkg_relay "showcase-backend-audio_relay-go/pkg/relay"
)

type recordFunc func(stop *bufio.Reader) ([]int16, error)

type sendFunc func(ctx context.Context, r io.Reader) (string, error)

// loop runs record, encode and send once per line read from in until the
// line is "exit" or in ends. Failures are reported and the loop goes on.
type loop struct {
	in         *bufio.Reader
	out        io.Writer
	record     recordFunc
	send       sendFunc
	sampleRate int
	channels   int
	logger     *zap.Logger
}

func wantsExit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "exit")
}

func (l *loop) run() {
	fmt.Fprintln(l.out, "press enter to start recording")

	for {
		line, err := l.in.ReadString('\n')
		if err != nil || wantsExit(line) {
			break
		}

		if err := l.once(); err != nil {
			l.logger.Error("utterance failed", zap.Error(err))
			fmt.Fprintf(l.out, "\n\033[31m[error] %v\033[0m\n", err)
		}

		fmt.Fprintln(l.out, "press enter to start a new recording, or type 'exit' to quit")
	}

	fmt.Fprintln(l.out, "session finished")
}

func (l *loop) once() error {
	samples, err := l.record(l.in)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	seconds := float64(len(samples)) / float64(l.sampleRate*l.channels)
	fmt.Fprintf(l.out, "stopped recording (%.1fs), transcribing...\n", seconds)

	wav, err := pkg_audio.EncodeWAV(samples, l.sampleRate, l.channels)
	if err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	transcript, err := l.send(ctx, bytes.NewReader(wav))
	if err != nil {
		if !errors.Is(err, pkg_relay.ErrServerError) {
			return fmt.Errorf("transcribe: %w", err)
		}
		return err
	}

	fmt.Fprintf(l.out, "\n\033[32mtranscription: %s\033[0m\n", transcript)
	return nil
}
