package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var version = "dev"

// daemonAddr is shared by every command.
var daemonAddr string

var addrFlag = cli.StringFlag{
	Name:        "addr, a",
	Usage:       "address of the variantd daemon",
	EnvVar:      "VARIANTD_ADDR",
	Value:       "127.0.0.1:4320",
	Destination: &daemonAddr,
}

func main() {
	app := cli.App{
		Name:      "variantctl",
		Usage:     "command-line client for the variantd daemon",
		UsageText: "variantctl <command> [arguments...]",
		Version:   version,
		Commands: []cli.Command{
			{
				Name:    "resolve",
				Aliases: []string{"r"},
				Usage:   "resolve the best content variant for a device",
				Action:  resolve,
				Flags:   resolveFlags,
			},
			{
				Name:    "download",
				Aliases: []string{"d"},
				Usage:   "request a download and optionally watch its progress",
				Action:  download,
				Flags:   dlFlags,
			},
			{
				Name:   "status",
				Usage:  "show the status of a download job",
				Action: status,
				Flags:  []cli.Flag{addrFlag},
			},
			{
				Name:   "cancel",
				Usage:  "cancel a download job",
				Action: cancelJob,
				Flags:  []cli.Flag{addrFlag},
			},
			{
				Name:    "history",
				Aliases: []string{"h"},
				Usage:   "show recent delivery outcomes for a client",
				Action:  history,
				Flags:   historyFlags,
			},
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "list catalog contents with their variants",
				Action:  list,
				Flags:   []cli.Flag{addrFlag},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Println("variantctl:", err.Error())
		os.Exit(1)
	}
}

func printRuntimeErr(scope string, err error) error {
	fmt.Printf("variantctl: %s: %s\n", scope, err.Error())
	return nil
}
