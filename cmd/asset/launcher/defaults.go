package launcher

// Defaults bundles the baseline values the launcher uses before the config
// file and flags override them.
type Defaults struct {
	Node    NodeDefaults
	Ledger  LedgerDefaults
	Logging LoggingDefaults
}

type NodeDefaults struct {
	DataDir   string // filesystem root for state files and audit exports
	StateFile string // ledger state file name inside the data directory
}

type LedgerDefaults struct {
	Network string // rules preset name: main, test or fake
}

type LoggingDefaults struct {
	Verbosity int    // logrus level numeric (0=panic .. 6=trace)
	Format    string // text or json
	Color     bool   // ANSI colors in text format
}

// DefaultConfig returns the fully populated defaults.
func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir:   "~/.asset-ledger",
			StateFile: "ledger.json",
		},
		Ledger: LedgerDefaults{
			Network: "fake",
		},
		Logging: LoggingDefaults{
			Verbosity: 4,
			Format:    "text",
			Color:     true,
		},
	}
}
