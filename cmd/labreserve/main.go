package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"labreserve/internal/config"
)

const usage = `usage: labreserve [--config PATH] <command> [flags]

commands:
  week     list committed bookings for a date window
  groups   list a user's reconciled booking sessions
  plan     check a YAML plan for conflicts and optionally submit it
  export   write sessions or bookings to an XLSX file
  serve    run health and metrics endpoints with device hot reload
`

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"week":   runWeek,
	"groups": runGroups,
	"plan":   runPlan,
	"export": runExport,
	"serve":  runServe,
}

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	flagSet := pflag.NewFlagSet("labreserve", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	configPath := flagSet.String("config", os.Getenv(config.EnvConfigPath), "path to config.yaml")
	verbose := flagSet.BoolP("verbose", "v", false, "enable debug logging")
	flagSet.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		os.Exit(2)
	}
	run, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", rest[0], usage)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise")
	}
	defer a.Close()

	if err := run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Error().Err(err).Str("command", rest[0]).Msg("command failed")
		a.Close()
		os.Exit(1)
	}
}
