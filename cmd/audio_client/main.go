// cmd/audio_client/main.go
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	pkg "showcase-backend-audio_relay-go/pkg"
	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
	pkg_logger "showcase-backend-audio_relay-go/pkg/logger"
	pkg_relay "showcase-backend-audio_relay-go/pkg/relay"
	pkg_ws "showcase-backend-audio_relay-go/pkg/ws"
)

// time allowed for one utterance to be sent and answered
const replyTimeout = 2 * time.Minute

func relayURL(cfg pkg_ws.WsConfig) string {
	host := cfg.Listener.Address
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(cfg.Listener.Port)) + "/"
}

func main() {
	configDir := flag.String("config-dir", "../..", "directory holding .env and config.*.json")
	urlFlag := flag.String("url", "", "relay url, defaults to the address in config.ws.json")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	// generate session id (uuid v7)
	sessionID, err := uuid.NewV7()
	if err != nil {
		log.Fatalf("failed to generate uuid v7: %v", err)
	}

	if err := pkg.LoadEnv(filepath.Join(*configDir, ".env")); err != nil {
		log.Fatalf("fail to load env: %v", err)
	}
	wsCfg, err := pkg_ws.WsConfigLoad(filepath.Join(*configDir, "config.ws.json"))
	if err != nil {
		log.Fatalf("fail to load ws config: %v", err)
	}
	audioCfg, err := pkg_audio.AudioConfigLoad(filepath.Join(*configDir, "config.audio.json"))
	if err != nil {
		log.Fatalf("fail to load audio config: %v", err)
	}

	logger, err := pkg_logger.BuildLogger(*verbose)
	if err != nil {
		log.Fatalf("fail to build logger: %v", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("client_id", sessionID.String()))

	url := *urlFlag
	if url == "" {
		url = relayURL(wsCfg)
	}
	client := pkg_relay.NewClient(url, logger)

	err = portaudio.Initialize()
	if err != nil {
		log.Fatalf("fail to initialize portaudio: %v", err)
	}
	defer portaudio.Terminate()

	// list available input devices
	devices, err := portaudio.Devices()
	if err != nil {
		log.Fatalf("failed to check devices: %v", err)
	}
	fmt.Printf("available input devices:\n")
	for i, dvc := range devices {
		if dvc.MaxInputChannels > 0 {
			fmt.Printf("#%d: %s\n", i, dvc.Name)
		}
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		log.Fatalf("no default input device")
	}
	fmt.Printf("using: %s\n", device.Name)

	sampleRate := audioCfg.Processing.SampleRate
	if device.DefaultSampleRate != sampleRate {
		fmt.Printf("warning: device sample rate %.0f ≠ %.0f\n", device.DefaultSampleRate, sampleRate)
	}

	rec := &recorder{
		device:       device,
		sampleRate:   sampleRate,
		channels:     audioCfg.Processing.AudioChannels,
		framesPerBuf: audioCfg.Processing.FramesPerBuf,
		maxDuration:  time.Duration(audioCfg.Processing.MaxRecordSeconds) * time.Second,
	}

	fmt.Printf("relay: %s\n", url)

	l := &loop{
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
		record:     rec.Record,
		send:       client.Transcribe,
		sampleRate: int(sampleRate),
		channels:   rec.channels,
		logger:     logger,
	}
	l.run()
}
