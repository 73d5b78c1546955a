package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hbomb79/Fetcha/internal"
	"github.com/hbomb79/Fetcha/pkg/logger"
)

var log = logger.Get("Main")

// main is the entry point to the program. The user configuration is loaded
// from the path provided via the -config flag, falling back to environment
// variables (and their defaults) when no file is given.
func main() {
	configPath := flag.String("config", "", "path to the Fetcha YAML configuration file")
	flag.Parse()

	config := internal.FetchaConfig{}
	if *configPath != "" {
		if err := config.LoadFromFile(*configPath); err != nil {
			log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
	} else if err := config.LoadFromEnv(); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Fetcha has stopped due to error: %v\n", err)
		os.Exit(1)
	}

	log.Emit(logger.STOP, "Fetcha has stopped\n")
}
