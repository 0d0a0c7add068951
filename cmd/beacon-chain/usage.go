// This code was adapted from https://github.com/ethereum/go-ethereum/blob/master/cmd/geth/usage.go
package main

import (
	"io"
	"sort"

	"github.com/esperanzalabs/esperanza/cmd"
	"github.com/esperanzalabs/esperanza/cmd/beacon-chain/flags"
	"github.com/urfave/cli/v2"
)

var appHelpTemplate = `NAME:
   {{.App.Name}} - {{.App.Usage}}
USAGE:
   {{.App.HelpName}} [options]{{if .App.Commands}} command [command options]{{end}}
{{if .App.Commands}}
COMMANDS:
   {{range .App.Commands}}{{join .Names ", "}}{{ "\t" }}{{.Usage}}
   {{end}}{{end}}{{range .FlagGroups}}
{{.Name}} OPTIONS:
   {{range .Flags}}{{.}}
   {{end}}{{end}}{{if .App.Version}}
VERSION:
   {{.App.Version}}
{{end}}`

type flagGroup struct {
	Name  string
	Flags []cli.Flag
}

var appHelpFlagGroups = []flagGroup{
	{
		Name: "cmd",
		Flags: []cli.Flag{
			cmd.DataDirFlag,
			cmd.VerbosityFlag,
			cmd.EnableTracingFlag,
			cmd.TracingProcessNameFlag,
			cmd.TracingEndpointFlag,
			cmd.TraceSampleFractionFlag,
			cmd.MonitoringHostFlag,
			flags.MonitoringPortFlag,
			cmd.DisableMonitoringFlag,
			cmd.EnableBackupWebhookFlag,
			cmd.ForceClearDB,
			cmd.ClearDB,
			cmd.ConfigFileFlag,
			cmd.ChainConfigFileFlag,
		},
	},
	{
		Name: "finalization",
		Flags: []cli.Flag{
			flags.NetworkFlag,
			flags.GenesisHashFlag,
			flags.StateCacheSizeFlag,
			flags.StatusIntervalFlag,
		},
	},
	{
		Name: "dev",
		Flags: []cli.Flag{
			flags.SimulatorDelayFlag,
		},
	},
	{
		Name: "log",
		Flags: []cli.Flag{
			cmd.LogFormat,
			cmd.LogFileName,
		},
	},
}

type helpData struct {
	App        interface{}
	FlagGroups []flagGroup
}

func init() {
	cli.AppHelpTemplate = appHelpTemplate
	for _, group := range appHelpFlagGroups {
		sort.Sort(cli.FlagsByName(group.Flags))
	}

	printer := cli.HelpPrinter
	cli.HelpPrinter = func(w io.Writer, tmpl string, data interface{}) {
		if tmpl != appHelpTemplate {
			printer(w, tmpl, data)
			return
		}
		printer(w, tmpl, helpData{App: data, FlagGroups: appHelpFlagGroups})
	}
}
