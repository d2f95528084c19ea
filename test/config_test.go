package test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-asset-ledger/asset"
	"github.com/rony4d/go-asset-ledger/cmd/asset/launcher"
	"github.com/rony4d/go-asset-ledger/flags"
)

// runConfigFromArgs builds a launcher config from synthetic CLI arguments.
func runConfigFromArgs(t *testing.T, args []string) launcher.Config {
	t.Helper()

	app := cli.NewApp()
	app.HideHelp = true
	app.HideVersion = true
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.NetworkFlags()...)
	app.Flags = append(app.Flags, flags.LedgerFlags()...)

	var got launcher.Config
	app.Action = func(c *cli.Context) error {
		cfg, err := launcher.MakeAllConfigs(c)
		if err != nil {
			return err
		}
		got = cfg
		return nil
	}

	if err := app.Run(append([]string{"asset-ledger"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	return got
}

func TestMakeAllConfigs_flagOverrides(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want func(t *testing.T, cfg launcher.Config)
	}{
		{
			name: "datadir and statefile",
			args: []string{"--datadir", "/tmp/ledger-data", "--statefile", "snapshot.json"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Node.DataDir != "/tmp/ledger-data" {
					t.Fatalf("DataDir = %q, want /tmp/ledger-data", cfg.Node.DataDir)
				}
				if cfg.Node.StateFile != "snapshot.json" {
					t.Fatalf("StateFile = %q, want snapshot.json", cfg.Node.StateFile)
				}
				if want := filepath.Join("/tmp/ledger-data", "snapshot.json"); cfg.StatePath() != want {
					t.Fatalf("StatePath = %q, want %q", cfg.StatePath(), want)
				}
			},
		},
		{
			name: "network selects the rules preset",
			args: []string{"--network", "main"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Ledger.Rules.NetworkID != asset.MainNetworkID {
					t.Fatalf("NetworkID = %#x, want %#x", cfg.Ledger.Rules.NetworkID, asset.MainNetworkID)
				}
				if cfg.Ledger.Rules.Name != "main" {
					t.Fatalf("Rules.Name = %q, want main", cfg.Ledger.Rules.Name)
				}
			},
		},
		{
			name: "rule tuning flags override the preset",
			args: []string{"--network", "fake", "--premint.maxpending", "3", "--hooks.max", "1"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Ledger.Rules.Premint.MaxPendingPremints != 3 {
					t.Fatalf("MaxPendingPremints = %d, want 3", cfg.Ledger.Rules.Premint.MaxPendingPremints)
				}
				if cfg.Ledger.Rules.Hooks.MaxHooks != 1 {
					t.Fatalf("MaxHooks = %d, want 1", cfg.Ledger.Rules.Hooks.MaxHooks)
				}
			},
		},
		{
			name: "logging flags",
			args: []string{"--log.format", "json", "--log.verbosity", "6"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Logging.Format != "json" {
					t.Fatalf("Format = %q, want json", cfg.Logging.Format)
				}
				if cfg.Logging.Verbosity != 6 {
					t.Fatalf("Verbosity = %d, want 6", cfg.Logging.Verbosity)
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := runConfigFromArgs(t, test.args)
			test.want(t, cfg)
		})
	}
}

func TestMakeAllConfigs_unknownNetwork(t *testing.T) {
	app := cli.NewApp()
	app.HideHelp = true
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.NetworkFlags()...)
	app.Action = func(c *cli.Context) error {
		_, err := launcher.MakeAllConfigs(c)
		return err
	}
	err := app.Run([]string{"asset-ledger", "--network", "bogus"})
	if err == nil {
		t.Fatal("expected an error for an unknown network name")
	}
}

func TestMakeAllConfigs_configFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.json")
	raw, err := json.Marshal(map[string]interface{}{
		"Node": map[string]interface{}{
			"DataDir":   dir,
			"StateFile": "from-file.json",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := runConfigFromArgs(t, []string{"--config", file})
	if cfg.Node.StateFile != "from-file.json" {
		t.Fatalf("StateFile = %q, want from-file.json", cfg.Node.StateFile)
	}

	// CLI flags still beat the config file.
	cfg = runConfigFromArgs(t, []string{"--config", file, "--statefile", "from-flag.json"})
	if cfg.Node.StateFile != "from-flag.json" {
		t.Fatalf("StateFile = %q, want from-flag.json", cfg.Node.StateFile)
	}
}
