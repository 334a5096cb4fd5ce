// cmd/relay_server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	pkg "showcase-backend-audio_relay-go/pkg"
	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
	pkg_grpc "showcase-backend-audio_relay-go/pkg/grpc"
	pkg_logger "showcase-backend-audio_relay-go/pkg/logger"
	pkg_metrics "showcase-backend-audio_relay-go/pkg/metrics"
	pkg_whisper "showcase-backend-audio_relay-go/pkg/whisper"
	pkg_ws "showcase-backend-audio_relay-go/pkg/ws"
)

func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	return max(runtime.NumCPU(), 1)
}

func main() {
	configDir := flag.String("config-dir", "../..", "directory holding .env and config.*.json")
	flag.Parse()

	if err := pkg.LoadEnv(filepath.Join(*configDir, ".env")); err != nil {
		log.Fatalf("failed to load env: %v", err)
	}
	wsCfg, err := pkg_ws.WsConfigLoad(filepath.Join(*configDir, "config.ws.json"))
	if err != nil {
		log.Fatalf("failed to load ws config: %v", err)
	}
	grpcCfg, err := pkg_grpc.GrpcConfigLoad(filepath.Join(*configDir, "config.grpc.json"))
	if err != nil {
		log.Fatalf("failed to load grpc config: %v", err)
	}
	audioCfg, err := pkg_audio.AudioConfigLoad(filepath.Join(*configDir, "config.audio.json"))
	if err != nil {
		log.Fatalf("failed to load audio config: %v", err)
	}

	logger, err := pkg_logger.BuildLogger(wsCfg.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := pkg_metrics.NewMetrics(reg)

	// health answers NOT_SERVING while the model loads
	health := pkg_grpc.NewHealthServer(grpcCfg.Health.Service, logger)
	healthAddr := fmt.Sprintf("%s:%d", grpcCfg.Listener.Address, grpcCfg.Listener.Port)
	healthLis, err := net.Listen("tcp", healthAddr)
	if err != nil {
		logger.Fatal("failed to listen for health", zap.String("address", healthAddr), zap.Error(err))
	}
	go func() {
		if err := health.Serve(healthLis); err != nil {
			logger.Error("health server stopped", zap.Error(err))
		}
	}()
	logger.Info("health server running", zap.String("address", healthAddr))

	// load whisper model once
	model, err := whisper.New(audioCfg.Whisper.Model)
	if err != nil {
		logger.Fatal("failed to load whisper model", zap.String("model", audioCfg.Whisper.Model), zap.Error(err))
	}
	defer model.Close()
	logger.Info("whisper model loaded", zap.String("model", audioCfg.Whisper.Model))

	// note:
	// - this one is to protect cgo inference calls
	// - it makes compute serial, but concurrent preparation
	var inferenceMu sync.Mutex

	numWorkers := workerCount(audioCfg.Whisper.Workers)

	// buffer channel larger to handle burst traffic
	reqChan := make(chan *pkg_audio.TranscribeRequest, audioCfg.Whisper.Queue)

	logger.Info("starting whisper workers", zap.Int("workers", numWorkers))
	err = pkg_whisper.WhisperWorkerPool(model, reqChan, numWorkers, &inferenceMu, audioCfg.Whisper.Language, logger)
	if err != nil {
		logger.Fatal("failed to start whisper workers", zap.Error(err))
	}
	health.SetServing(true)

	srv := pkg_ws.NewServer(
		wsCfg,
		pkg_whisper.NewPool(reqChan),
		pkg_audio.TranscribeOptions{
			BeamSize: audioCfg.Whisper.BeamSize,
			Language: audioCfg.Whisper.Language,
		},
		metrics,
		reg,
		logger,
	)

	// graceful shutdown on signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-sigChan
		logger.Info("shutting down relay server...")
		health.SetServing(false)

		ctx, cancel := context.WithTimeout(context.Background(), wsCfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			// sessions may still hold the queue, leave it open
			logger.Error("relay shutdown", zap.Error(err))
		} else {
			close(reqChan)
		}
		health.Stop()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, pkg_ws.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
	<-stopped
	logger.Info("relay server exited")
}
