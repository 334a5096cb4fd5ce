package pkg_audio

import (
	pkg "showcase-backend-audio_relay-go/pkg"
)

type AudioConfig struct {
	Whisper struct {
		Model    string `mapstructure:"model"`
		Language string `mapstructure:"language"`
		BeamSize int    `mapstructure:"beam_size"`
		Workers  int    `mapstructure:"workers"` // 0 means runtime.NumCPU()
		Queue    int    `mapstructure:"queue"`   // request channel capacity
	} `mapstructure:"whisper"`
	Processing struct {
		SampleRate       float64 `mapstructure:"sample_rate"`
		AudioChannels    int     `mapstructure:"audio_channels"`
		FramesPerBuf     int     `mapstructure:"frames_per_buf"`
		MaxRecordSeconds int     `mapstructure:"max_record_seconds"`
	} `mapstructure:"processing"`
}

const envPrefix = "RELAY_AUDIO"

var audioDefaults = map[string]any{
	"whisper.model":                 "models/ggml-base.bin",
	"whisper.language":              "auto",
	"whisper.beam_size":             DefaultBeamSize,
	"whisper.workers":               0,
	"whisper.queue":                 100,
	"processing.sample_rate":        SampleRate,
	"processing.audio_channels":     1,
	"processing.frames_per_buf":     1024,
	"processing.max_record_seconds": 60,
}

func AudioConfigLoad(fp string) (AudioConfig, error) {
	var cfg AudioConfig

	err := pkg.ConfigLoad(fp, envPrefix, audioDefaults, &cfg)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}
