// Package db defines the database maintenance commands of the node.
package db

import (
	"github.com/esperanzalabs/esperanza/beacon-chain/db"
	"github.com/esperanzalabs/esperanza/cmd"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "db")

// Commands for interacting with the node database.
var Commands = &cli.Command{
	Name:     "db",
	Category: "db",
	Usage:    "defines commands for interacting with the finalization state database",
	Subcommands: []*cli.Command{
		{
			Name:        "restore",
			Description: `restores a database from a backup file`,
			Flags: cmd.WrapFlags([]cli.Flag{
				cmd.RestoreSourceFileFlag,
				cmd.RestoreTargetDirFlag,
				cmd.ForceClearDB,
			}),
			Before: requireSourceFile,
			Action: func(cliCtx *cli.Context) error {
				if err := db.Restore(cliCtx); err != nil {
					log.Fatalf("Could not restore database: %v", err)
				}
				return nil
			},
		},
	},
}

func requireSourceFile(cliCtx *cli.Context) error {
	if cliCtx.String(cmd.RestoreSourceFileFlag.Name) == "" {
		return cli.Exit("--"+cmd.RestoreSourceFileFlag.Name+" is required", 1)
	}
	return nil
}
