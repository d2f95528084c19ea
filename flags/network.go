package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags selects the deployment rules preset and its overrides.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Rules preset to run under (main|test|fake)",
			Value: "fake",
		},
		cli.StringFlag{
			Name:  "genesis",
			Usage: "Genesis allocation file (JSON) for the init command",
		},
	}
}

// LedgerFlags isolates ledger rule tuning knobs.
func LedgerFlags() []cli.Flag {
	return []cli.Flag{
		cli.UintFlag{
			Name:  "premint.maxpending",
			Usage: "Cap on pending premint records per account",
		},
		cli.Uint64Flag{
			Name:  "premint.maxamount",
			Usage: "Capacity of a single premint record",
		},
		cli.UintFlag{
			Name:  "hooks.max",
			Usage: "Cap on registered transfer hooks",
		},
	}
}
