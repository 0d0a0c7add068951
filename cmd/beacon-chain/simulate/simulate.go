// Package simulate defines the command that drives the node with a
// simulated chain of finalizer commits.
package simulate

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/esperanzalabs/esperanza/beacon-chain/node"
	"github.com/esperanzalabs/esperanza/beacon-chain/simulator"
	"github.com/esperanzalabs/esperanza/cmd"
	"github.com/esperanzalabs/esperanza/cmd/beacon-chain/flags"
	"github.com/esperanzalabs/esperanza/consensus-types/primitives"
	"github.com/esperanzalabs/esperanza/io/logs"
	"github.com/k0kubun/go-ansi"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "simulate")

// Commands for chain simulation.
var Commands = &cli.Command{
	Name:     "simulate",
	Category: "dev",
	Usage:    "builds a simulated chain with forks, a double vote and a withdrawal and reports the resulting finalization",
	Flags: cmd.WrapFlags([]cli.Flag{
		cmd.DataDirFlag,
		cmd.ClearDB,
		cmd.ForceClearDB,
		cmd.LogFileName,
		cmd.ChainConfigFileFlag,
		cmd.MonitoringHostFlag,
		cmd.DisableMonitoringFlag,
		flags.MonitoringPortFlag,
		flags.NetworkFlag,
		flags.GenesisHashFlag,
		flags.StateCacheSizeFlag,
		flags.SimulatedBlocksFlag,
		flags.SimulatedValidatorsFlag,
		flags.SimulatedForkEveryFlag,
		flags.SimulatedDoubleVoteEpochFlag,
		flags.SimulatedLogoutEpochFlag,
	}),
	Before: func(cliCtx *cli.Context) error {
		logFileName := cliCtx.String(cmd.LogFileName.Name)
		if logFileName != "" {
			if err := logs.ConfigurePersistentLogging(logFileName); err != nil {
				log.WithError(err).Error("Failed to configuring logging to disk.")
			}
		}
		return nil
	},
	Action: Simulate,
}

// Simulate runs the simulator against a freshly built node. Without an
// explicit data directory the stores live in a temporary directory that is
// removed afterwards.
func Simulate(cliCtx *cli.Context) error {
	if !cliCtx.IsSet(cmd.DataDirFlag.Name) {
		dir, err := os.MkdirTemp("", "esperanza-simulate")
		if err != nil {
			return err
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				log.WithError(err).Error("Could not remove temporary data directory")
			}
		}()
		if err := cliCtx.Set(cmd.DataDirFlag.Name, dir); err != nil {
			return err
		}
	}
	if !cliCtx.IsSet(flags.NetworkFlag.Name) {
		if err := cliCtx.Set(flags.NetworkFlag.Name, "regtest"); err != nil {
			return err
		}
	}

	beacon, err := node.New(cliCtx)
	if err != nil {
		return errors.Wrap(err, "could not build node")
	}
	defer beacon.Close()

	blocks := cliCtx.Int(flags.SimulatedBlocksFlag.Name)
	params := &simulator.Parameters{
		NumValidators:   cliCtx.Int(flags.SimulatedValidatorsFlag.Name),
		ForkEvery:       cliCtx.Int(flags.SimulatedForkEveryFlag.Name),
		DoubleVoteEpoch: primitives.Epoch(cliCtx.Uint64(flags.SimulatedDoubleVoteEpochFlag.Name)),
		LogoutEpoch:     primitives.Epoch(cliCtx.Uint64(flags.SimulatedLogoutEpochFlag.Name)),
	}
	if params.NumValidators <= 0 {
		return errors.New("at least one validator is required")
	}

	bar := initializeProgressBar(blocks, "Simulating blocks...")
	stats, err := beacon.Simulate(blocks, params, func(simulator.Stats) {
		if err := bar.Add(1); err != nil {
			log.WithError(err).Debug("Could not update progress bar")
		}
	})
	if err != nil {
		return errors.Wrap(err, "simulation failed")
	}
	printSummary(stats)
	return nil
}

func initializeProgressBar(numItems int, msg string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		numItems,
		progressbar.OptionFullWidth(),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
		progressbar.OptionSetDescription(msg),
	)
}

func printSummary(stats simulator.Stats) {
	au := aurora.NewAurora(true)
	fmt.Printf("%s\n", au.BrightGreen("Simulation complete").Bold())
	fmt.Printf("  tip               %s at height %d\n", au.BrightCyan(stats.Tip.Hex()), stats.Height)
	fmt.Printf("  epoch             %d\n", stats.CurrentEpoch)
	fmt.Printf("  justified epoch   %d\n", au.BrightGreen(stats.LastJustifiedEpoch))
	fmt.Printf("  finalized epoch   %d\n", au.BrightGreen(stats.LastFinalizedEpoch))
	fmt.Printf("  blocks            %s (%s on forks)\n", humanize.Comma(int64(stats.Blocks)), humanize.Comma(int64(stats.ForkBlocks)))
	fmt.Printf("  rejected blocks   %d\n", au.BrightRed(stats.RejectedBlocks))
	fmt.Printf("  commits           %s\n", humanize.Comma(int64(stats.Commits)))
	fmt.Printf("  slashings         %d\n", stats.SlashingsIncluded)
	fmt.Printf("  blocks per second %s\n", humanize.Comma(stats.BlocksPerSecond))
}
