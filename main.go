package main

import (
	"os"
	"time"

	"github.com/openeire/openeire-api/app/cmd"
	"github.com/openeire/openeire-api/app/configs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	env := configs.LoadEnv()

	level, err := zerolog.ParseLevel(env.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if env.AppEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "openeire-api").Logger()

	cmd.RunCli(env)
}
