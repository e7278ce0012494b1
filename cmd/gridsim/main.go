// Command gridsim runs a scripted grid-body scenario headless and optionally
// writes PNG frames of the world.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "scenario config file (yaml, json or toml)")
	flag.Parse()

	envErr := loadDotEnv(".env")

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridsim: %v\n", err)
		return 2
	}

	log, closer := newLogger(cfg.Log)
	defer closer.Close()
	if envErr != nil {
		log.Warnf("ignoring .env: %v", envErr)
	}

	sim, err := NewSim(cfg, log)
	if err != nil {
		log.Errorf("setup failed: %v", err)
		return 1
	}
	defer sim.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("run failed: %v", err)
		return 1
	}
	return 0
}

// loadDotEnv exports the variables of an env file. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
