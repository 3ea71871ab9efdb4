package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"terrainstream/internal/config"
)

func main() {
	var (
		cfgPath     string
		frames      int
		backendName string
	)
	flag.StringVar(&cfgPath, "config", "", "path to streamer configuration file (JSON or YAML)")
	flag.IntVar(&frames, "frames", 0, "number of frames to run; 0 runs until interrupted")
	flag.StringVar(&backendName, "backend", "", "override compute.backend (cpu or gl)")
	flag.Parse()

	logger := log.New(log.Writer(), "streamer ", log.LstdFlags|log.Lmicroseconds)

	if wrote, err := writeConfigFromEnv(cfgPath); err != nil {
		log.Fatalf("sync config from environment: %v", err)
	} else if wrote {
		logger.Printf("wrote environment configuration to %s", cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if backendName != "" {
		cfg.Compute.Backend = backendName
		if err := cfg.Validate(); err != nil {
			log.Fatalf("validate config: %v", err)
		}
	}

	be, err := newBackend(cfg, logger)
	if err != nil {
		log.Fatalf("initialise %s backend: %v", cfg.Compute.Backend, err)
	}
	a, err := newApp(cfg, be, logger)
	if err != nil {
		be.Close()
		log.Fatalf("initialise streamer: %v", err)
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.Run(ctx, frames); err != nil {
		logger.Printf("streamer exited with error: %v", err)
		a.Close()
		os.Exit(1)
	}
	logger.Printf("stopped after %d frames", a.streamer.LastReport().Frame)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		// Ensure the process terminates if shutdown stalls.
		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
