package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/repcoach/internal/config"
	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/rules"
	"github.com/okian/repcoach/internal/replay"
	"github.com/okian/repcoach/pkg/logger"
)

const (
	defaultReps       = 5
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 5 * time.Minute
)

func main() {
	var (
		input     = flag.String("input", "", "JSON-lines landmark recording (default: synthetic stream)")
		synthetic = flag.String("synthetic", "squat", "Synthetic stream when no input is given: squat or press")
		reps      = flag.Int("reps", defaultReps, "Repetitions in the synthetic stream")
		id        = flag.String("id", "replay", "Exercise id")
		name      = flag.String("name", "", "Exercise name (default: the synthetic stream kind)")
		category  = flag.String("category", "", "Explicit rule family")
		target    = flag.Int("target", defaultReps, "Target repetitions")
		baseURL   = flag.String("url", "", "Post frames to a running server instead of replaying in process")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Print every frame")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("replay")

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Thresholds follow the server configuration.
	cfgSvc, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "load config", logger.Error(err))
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfgSvc.LogLevel)

	if *name == "" {
		*name = *synthetic
	}
	cfg := &replay.Config{
		Input:     *input,
		Synthetic: *synthetic,
		Reps:      *reps,
		Exercise: model.Exercise{
			ID:         *id,
			Name:       *name,
			Category:   *category,
			TargetReps: *target,
		},
		BaseURL: *baseURL,
		Timeout: *timeout,
		Verbose: *verbose,
		Out:     os.Stdout,
	}

	src, err := replay.Frames(cfg)
	if err != nil {
		log.Error(ctx, "open frames", logger.Error(err))
		os.Exit(1)
	}

	var stats replay.Stats
	if cfg.BaseURL != "" {
		stats, err = replay.RunRemote(ctx, cfg, src)
	} else {
		stats, err = replay.Run(ctx, cfg, src, rules.NewRegistry(cfgSvc.RuleOptions()...))
	}
	replay.Summary(os.Stdout, stats)
	if err != nil {
		log.Error(ctx, "replay failed", logger.Error(err))
		os.Exit(1)
	}
}
