package launcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-asset-ledger/asset"
)

// Config aggregates everything the launcher needs to operate on a ledger
// state directory.
type Config struct {
	Node    NodeConfig
	Ledger  LedgerConfig
	Logging LoggingConfig
	Sentry  SentryConfig
}

type NodeConfig struct {
	DataDir   string
	StateFile string // relative to DataDir unless absolute
}

type LedgerConfig struct {
	NetworkName string
	GenesisFile string
	Rules       asset.Rules
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
}

type SentryConfig struct {
	DSN string
}

func defaultConfig() Config {
	d := DefaultConfig()
	return Config{
		Node: NodeConfig{
			DataDir:   filepath.Join(GuessHomeDir(), ".asset-ledger"),
			StateFile: d.Node.StateFile,
		},
		Ledger: LedgerConfig{
			NetworkName: d.Ledger.Network,
			Rules:       asset.FakeLedgerRules(),
		},
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
		},
	}
}

// MakeAllConfigs merges defaults, the optional config file, then CLI flag
// overrides into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if file := ctx.GlobalString("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", file, err)
		}
	}
	if err := applyCLIOverrides(ctx, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// StatePath resolves the state file against the data directory.
func (c Config) StatePath() string {
	if filepath.IsAbs(c.Node.StateFile) {
		return c.Node.StateFile
	}
	return filepath.Join(c.Node.DataDir, c.Node.StateFile)
}

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(resolvePath(path))
	if err != nil {
		return err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) error {
	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = resolvePath(ctx.GlobalString("datadir"))
	}
	if ctx.GlobalIsSet("statefile") {
		cfg.Node.StateFile = ctx.GlobalString("statefile")
	}

	if ctx.GlobalIsSet("network") {
		cfg.Ledger.NetworkName = ctx.GlobalString("network")
	}
	rules, err := rulesByName(cfg.Ledger.NetworkName)
	if err != nil {
		return err
	}
	cfg.Ledger.Rules = rules

	if ctx.GlobalIsSet("genesis") {
		cfg.Ledger.GenesisFile = resolvePath(ctx.GlobalString("genesis"))
	}
	if ctx.GlobalIsSet("premint.maxpending") {
		cfg.Ledger.Rules.Premint.MaxPendingPremints = uint16(ctx.GlobalUint("premint.maxpending"))
	}
	if ctx.GlobalIsSet("premint.maxamount") {
		cfg.Ledger.Rules.Premint.MaxAmount = ctx.GlobalUint64("premint.maxamount")
	}
	if ctx.GlobalIsSet("hooks.max") {
		cfg.Ledger.Rules.Hooks.MaxHooks = uint32(ctx.GlobalUint("hooks.max"))
	}

	if ctx.GlobalIsSet("log.format") {
		cfg.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("sentry.dsn") {
		cfg.Sentry.DSN = ctx.GlobalString("sentry.dsn")
	}
	return nil
}

func rulesByName(name string) (asset.Rules, error) {
	switch name {
	case "main":
		return asset.MainLedgerRules(), nil
	case "test":
		return asset.TestLedgerRules(), nil
	case "fake":
		return asset.FakeLedgerRules(), nil
	default:
		return asset.Rules{}, fmt.Errorf("unknown network %q (valid: main, test, fake)", name)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
