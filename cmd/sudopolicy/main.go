package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sudoersgo/policyengine/internal/cli"
)

func main() {
	level := zerolog.InfoLevel
	if v := os.Getenv("SUDOPOLICY_LOG_LEVEL"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			level = l
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("sudopolicy failed")
		os.Exit(1)
	}
}
