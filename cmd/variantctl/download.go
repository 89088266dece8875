package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/variantdl/variantdl/common"
	"github.com/variantdl/variantdl/pkg/varclient"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

var (
	dlClientID string
	dlTier     string
	dlWatch    bool

	dlFlags = []cli.Flag{
		addrFlag,
		cli.StringFlag{
			Name:        "client, c",
			Usage:       "client identifier",
			Destination: &dlClientID,
		},
		cli.StringFlag{
			Name:        "tier, t",
			Usage:       "service tier (free, standard or premium)",
			Value:       string(common.TierFree),
			Destination: &dlTier,
		},
		cli.BoolFlag{
			Name:        "watch, w",
			Usage:       "use this flag to stream progress until the job ends",
			Destination: &dlWatch,
		},
	}

	historyLimit int

	historyFlags = []cli.Flag{
		addrFlag,
		cli.StringFlag{
			Name:        "client, c",
			Usage:       "client identifier",
			Destination: &dlClientID,
		},
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "maximum number of records to show",
			Destination: &historyLimit,
		},
	}
)

func download(cctx *cli.Context) error {
	contentID := cctx.Args().First()
	if contentID == "" {
		return cli.ShowCommandHelp(cctx, cctx.Command.Name)
	}
	client := varclient.NewClient(daemonAddr)
	res, err := client.RequestDownload(context.Background(), contentID, dlClientID, common.Tier(dlTier))
	if err != nil {
		return printRuntimeErr("download", err)
	}
	if res.Coalesced {
		fmt.Printf("Joined running job %s (%s)\n", res.JobID, res.Status)
	} else {
		fmt.Printf("Queued job %s\n", res.JobID)
	}
	if !dlWatch {
		return nil
	}
	return watchJob(client, res.JobID)
}

// watchJob subscribes to the client's progress stream and renders a
// percent bar until the job reaches a terminal state.
func watchJob(client *varclient.Client, jobID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := mpb.New(mpb.WithWidth(48))
	bar := p.New(100,
		mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			decor.Name("Downloading", decor.WC{W: 12, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	var final variantlib.JobStatus
	err := client.Subscribe(ctx, dlClientID, func(ev variantlib.Event) {
		if ev.JobID != jobID {
			return
		}
		bar.SetCurrent(int64(ev.Percent))
		if ev.Status == variantlib.StatusSuccess || ev.Status == variantlib.StatusFailed {
			final = ev.Status
			cancel()
		}
	})
	if err != nil && ctx.Err() == nil {
		return printRuntimeErr("watch", err)
	}
	bar.Abort(false)
	p.Wait()

	switch final {
	case variantlib.StatusSuccess:
		fmt.Println("Download complete!")
	case variantlib.StatusFailed:
		fmt.Println("Download failed, check `variantctl status` for details")
	default:
		fmt.Println("Stopped watching")
	}
	return nil
}

func status(cctx *cli.Context) error {
	jobID := cctx.Args().First()
	if jobID == "" {
		return cli.ShowCommandHelp(cctx, cctx.Command.Name)
	}
	client := varclient.NewClient(daemonAddr)
	res, err := client.JobStatus(context.Background(), jobID)
	if err != nil {
		return printRuntimeErr("status", err)
	}
	fmt.Printf("Job %s: %s (%d%%, %d attempts)\n",
		res.JobID, res.Status, res.Percent, res.Attempts)
	return nil
}

func cancelJob(cctx *cli.Context) error {
	jobID := cctx.Args().First()
	if jobID == "" {
		return cli.ShowCommandHelp(cctx, cctx.Command.Name)
	}
	client := varclient.NewClient(daemonAddr)
	if err := client.CancelJob(context.Background(), jobID); err != nil {
		return printRuntimeErr("cancel", err)
	}
	fmt.Printf("Cancel requested for job %s\n", jobID)
	return nil
}

func history(cctx *cli.Context) error {
	client := varclient.NewClient(daemonAddr)
	res, err := client.History(context.Background(), dlClientID, historyLimit)
	if err != nil {
		return printRuntimeErr("history", err)
	}
	if len(res.Records) == 0 {
		fmt.Println("variantctl: no history found")
		return nil
	}
	for _, rec := range res.Records {
		outcome := "ok"
		if !rec.Success {
			outcome = "failed"
		}
		fmt.Printf("%s  %-8s %s\n",
			rec.Timestamp.Format(time.DateTime), outcome, rec.ContentID)
	}
	return nil
}
