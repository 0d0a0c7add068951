// Package flags defines the command line flags of the node.
package flags

import (
	"time"

	"github.com/esperanzalabs/esperanza/beacon-chain/db/kv"
	cmdflags "github.com/esperanzalabs/esperanza/cmd/flags"
	"github.com/esperanzalabs/esperanza/config/params"
	"github.com/urfave/cli/v2"
)

var (
	// NetworkFlag selects the finalization parameters preset.
	NetworkFlag = cmdflags.EnumValue{
		Name:  "network",
		Usage: "Network whose finalization parameters are used",
		Enum:  []string{params.Mainnet.String(), params.Testnet.String(), params.Regtest.String()},
		Value: params.Mainnet.String(),
	}.GenericFlag()
	// GenesisHashFlag is the hash of the genesis block the block tree starts from.
	GenesisHashFlag = &cli.StringFlag{
		Name:  "genesis-hash",
		Usage: "Hex encoded hash of the genesis block",
		Value: "0x0000000000000000000000000000000000000000000000000000000000000000",
	}
	// MonitoringPortFlag defines the http port used to serve prometheus metrics.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listening and respond metrics for prometheus.",
		Value: 8080,
	}
	// StateCacheSizeFlag bounds the number of decoded states kept by the state store.
	StateCacheSizeFlag = &cli.IntFlag{
		Name:  "state-cache-size",
		Usage: "Number of finalization states kept decoded in memory by the database",
		Value: kv.DefaultStateCacheSize,
	}
	// StatusIntervalFlag sets how often the node logs the state of its tip.
	StatusIntervalFlag = &cli.DurationFlag{
		Name:  "status-interval",
		Usage: "Interval between two chain status log lines",
		Value: 30 * time.Second,
	}
	// SimulatorDelayFlag runs the chain simulator in the node when positive.
	SimulatorDelayFlag = &cli.DurationFlag{
		Name:  "dev-simulator-delay",
		Usage: "Produce simulated blocks at this interval. Disabled when zero",
	}
	// SimulatedBlocksFlag is the number of blocks produced by the simulate command.
	SimulatedBlocksFlag = &cli.IntFlag{
		Name:  "blocks",
		Usage: "Number of blocks to simulate",
		Value: 200,
	}
	// SimulatedValidatorsFlag is the number of finalizers in the simulated chain.
	SimulatedValidatorsFlag = &cli.IntFlag{
		Name:  "validators",
		Usage: "Number of finalizers in the simulated chain",
		Value: 4,
	}
	// SimulatedForkEveryFlag sets how often the simulator offers a competing block.
	SimulatedForkEveryFlag = &cli.IntFlag{
		Name:  "fork-every",
		Usage: "Offer an empty competing block every N heights, zero disables forks",
		Value: 7,
	}
	// SimulatedDoubleVoteEpochFlag is the epoch of the simulated double vote.
	SimulatedDoubleVoteEpochFlag = &cli.Uint64Flag{
		Name:  "double-vote-epoch",
		Usage: "Epoch in which the first finalizer double votes, zero disables it",
		Value: 6,
	}
	// SimulatedLogoutEpochFlag is the epoch from which the last finalizer logs out.
	SimulatedLogoutEpochFlag = &cli.Uint64Flag{
		Name:  "logout-epoch",
		Usage: "Epoch from which the last finalizer logs out, zero disables it",
		Value: 10,
	}
)
