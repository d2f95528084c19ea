// Package launcher wires the asset-ledger CLI: it merges configuration,
// sets up logging, and exposes the state-file commands (init, check, dump).
package launcher

import (
	"fmt"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-asset-ledger/flags"
	"github.com/rony4d/go-asset-ledger/ledger"
)

var app = flags.NewApp()

func init() {
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.NetworkFlags()...)
	app.Flags = append(app.Flags, flags.LedgerFlags()...)
	app.Commands = []cli.Command{
		initCommand,
		checkCommand,
		dumpCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		cfg, err := MakeAllConfigs(ctx)
		if err != nil {
			return err
		}
		return setupLogging(cfg)
	}
}

// Launch runs the CLI with the given arguments.
func Launch(args []string) error {
	return app.Run(args)
}

func setupLogging(cfg Config) error {
	level := logrus.Level(cfg.Logging.Verbosity)
	if level > logrus.TraceLevel {
		level = logrus.TraceLevel
	}
	logrus.SetLevel(level)

	switch cfg.Logging.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   cfg.Logging.Color,
			DisableColors: !cfg.Logging.Color,
			FullTimestamp: true,
		})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Logging.Format)
	}

	if cfg.Sentry.DSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.Sentry.DSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return fmt.Errorf("sentry hook: %w", err)
		}
		logrus.AddHook(hook)
	}
	return nil
}

// loadLedger reads the configured state file and rebuilds a ledger from it,
// verifying every invariant.
func loadLedger(cfg Config) (*ledger.Ledger, error) {
	network, snap, err := readState(cfg.StatePath())
	if err != nil {
		return nil, err
	}
	if network != "" && network != cfg.Ledger.Rules.Name {
		return nil, fmt.Errorf("state file belongs to network %q, launcher runs %q",
			network, cfg.Ledger.Rules.Name)
	}
	l := ledger.New(cfg.Ledger.Rules, ledger.NewStaticAuthority())
	if err := l.RestoreSnapshot(snap); err != nil {
		return nil, err
	}
	return l, nil
}
