package pkg_grpc

import (
	pkg "showcase-backend-audio_relay-go/pkg"
)

type GrpcConfig struct {
	Listener struct {
		Address string `mapstructure:"address"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"listener"`
	Health struct {
		Service string `mapstructure:"service"`
	} `mapstructure:"health"`
}

const envPrefix = "RELAY_GRPC"

var grpcDefaults = map[string]any{
	"listener.address": "0.0.0.0",
	"listener.port":    8766,
	"health.service":   "relay.Transcription",
}

func GrpcConfigLoad(fp string) (GrpcConfig, error) {
	var cfg GrpcConfig

	err := pkg.ConfigLoad(fp, envPrefix, grpcDefaults, &cfg)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}
