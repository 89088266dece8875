package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/variantdl/variantdl/pkg/varclient"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

var (
	deviceChipset    string
	deviceMemory     int
	deviceResolution string
	clientID         string
	failedContentID  string

	resolveFlags = []cli.Flag{
		addrFlag,
		cli.StringFlag{
			Name:        "chipset, s",
			Usage:       "device chipset, e.g. snapdragon888",
			Destination: &deviceChipset,
		},
		cli.IntFlag{
			Name:        "memory, m",
			Usage:       "device memory in GB",
			Destination: &deviceMemory,
		},
		cli.StringFlag{
			Name:        "resolution, r",
			Usage:       "device display resolution, e.g. 1080p",
			Destination: &deviceResolution,
		},
		cli.StringFlag{
			Name:        "client, c",
			Usage:       "client identifier",
			Destination: &clientID,
		},
		cli.StringFlag{
			Name:        "failed, f",
			Usage:       "content id that failed, to request a fallback",
			Destination: &failedContentID,
		},
	}
)

func resolve(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client := varclient.NewClient(daemonAddr)
	device := variantlib.DeviceInfo{
		Chipset:    deviceChipset,
		Memory:     deviceMemory,
		Resolution: deviceResolution,
	}
	if failedContentID != "" {
		r, rerr := client.ResolveFallback(context.Background(), device, name, clientID, failedContentID)
		if rerr != nil {
			return printRuntimeErr("resolve", rerr)
		}
		printResolved(r.ContentID, string(r.Kind), r.Version, r.DownloadURL, r.Fallback)
		return nil
	}
	r, err := client.Resolve(context.Background(), device, name, clientID)
	if err != nil {
		return printRuntimeErr("resolve", err)
	}
	printResolved(r.ContentID, string(r.Kind), r.Version, r.DownloadURL, r.Fallback)
	return nil
}

func printResolved(id, kind, version, url string, fallback bool) {
	if fallback {
		fmt.Println("Fallback variant:")
	} else {
		fmt.Println("Selected variant:")
	}
	fmt.Printf("  Id:      %s\n", id)
	fmt.Printf("  Kind:    %s\n", kind)
	fmt.Printf("  Version: %s\n", version)
	if url != "" {
		fmt.Printf("  Url:     %s\n", url)
	}
}

func list(ctx *cli.Context) error {
	client := varclient.NewClient(daemonAddr)
	l, err := client.ListContents(context.Background())
	if err != nil {
		return printRuntimeErr("list", err)
	}
	if len(l.Contents) == 0 {
		fmt.Println("variantctl: no contents found")
		return nil
	}
	for _, entry := range l.Contents {
		fmt.Printf("%s (%s, v%s, conversion: %s)\n",
			entry.Name, entry.ID, entry.Version, entry.ConversionState)
		for _, v := range entry.Variants {
			fmt.Printf("  - %-8s %s", v.Kind, v.ID)
			if v.Meta.RequiredChipset != "" {
				fmt.Printf("  [%s, %dGB, %s]",
					v.Meta.RequiredChipset, v.Meta.MinMemory, v.Meta.Resolution)
			}
			fmt.Println()
		}
	}
	return nil
}
