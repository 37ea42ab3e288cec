package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/genovault/genovault/app"
)

func main() {
	if err := app.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
