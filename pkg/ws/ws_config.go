package pkg_ws

import (
	"time"

	pkg "showcase-backend-audio_relay-go/pkg"
)

type WsConfig struct {
	Listener struct {
		Address     string `mapstructure:"address"`
		Port        int    `mapstructure:"port"`
		MaxSessions int    `mapstructure:"max_sessions"`
	} `mapstructure:"listener"`
	Session struct {
		MaxFrameBytes       int64 `mapstructure:"max_frame_bytes"`
		MaxBufferBytes      int   `mapstructure:"max_buffer_bytes"`
		IdleTimeoutMs       int   `mapstructure:"idle_timeout_ms"`
		TranscribeTimeoutMs int   `mapstructure:"transcribe_timeout_ms"`
		ShutdownTimeoutMs   int   `mapstructure:"shutdown_timeout_ms"`
	} `mapstructure:"session"`
	Debug bool `mapstructure:"debug"`
}

const envPrefix = "RELAY_WS"

var wsDefaults = map[string]any{
	"listener.address":              "0.0.0.0",
	"listener.port":                 8765,
	"listener.max_sessions":         64,
	"session.max_frame_bytes":       1 << 20,
	"session.max_buffer_bytes":      32 << 20,
	"session.idle_timeout_ms":       120000,
	"session.transcribe_timeout_ms": 60000,
	"session.shutdown_timeout_ms":   10000,
	"debug":                         false,
}

func WsConfigLoad(fp string) (WsConfig, error) {
	var cfg WsConfig

	err := pkg.ConfigLoad(fp, envPrefix, wsDefaults, &cfg)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c WsConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMs) * time.Millisecond
}

func (c WsConfig) TranscribeTimeout() time.Duration {
	return time.Duration(c.Session.TranscribeTimeoutMs) * time.Millisecond
}

func (c WsConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Session.ShutdownTimeoutMs) * time.Millisecond
}
