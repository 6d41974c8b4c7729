// sendbench measures datagram-send throughput over io_uring under
// different buffer-management strategies and prints one
// "<name>: <count>" line per configuration.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/beviu/cr18-project/bench"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// optional .env, absence is fine
	_ = godotenv.Load()

	cfg, err := bench.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	var (
		dest        = flag.String("dest", cfg.Dest, "destination host:port for datagrams")
		duration    = flag.Duration("duration", cfg.Duration, "wall-clock budget per configuration")
		runsFile    = flag.String("runs", cfg.RunsFile, "YAML run matrix, empty for the built-in sequence")
		sim         = flag.Bool("sim", cfg.Simulate, "drive the in-memory queue instead of io_uring")
		metricsAddr = flag.String("metrics", cfg.MetricsAddr, "serve Prometheus metrics on this address, empty to disable")
		debug       = flag.Bool("debug", cfg.Debug, "debug logging")
		keepGoing   = flag.Bool("continue-on-error", cfg.HaltPolicy == bench.HaltContinue, "keep sequencing after a failed run")
	)
	flag.Parse()

	cfg.Dest = *dest
	cfg.Duration = *duration
	cfg.RunsFile = *runsFile
	cfg.Simulate = *sim
	cfg.MetricsAddr = *metricsAddr
	cfg.Debug = *debug
	cfg.HaltPolicy = bench.HaltOnError
	if *keepGoing {
		cfg.HaltPolicy = bench.HaltContinue
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	runs := bench.DefaultRuns()
	if cfg.RunsFile != "" {
		if runs, err = bench.LoadRuns(cfg.RunsFile); err != nil {
			log.Fatal().Err(err).Msg("run matrix")
		}
	}

	if cfg.MetricsAddr != "" {
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, promhttp.Handler()); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	h, err := bench.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("harness")
	}
	if err := h.Sequence(os.Stdout, runs); err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
}
