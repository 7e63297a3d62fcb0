package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/salsation/eventfin/cmd/eventfin/cli"
	"github.com/salsation/eventfin/internal/app"
)

func runGracePriceCheck(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("graceprice-check", flag.ContinueOnError)
	prodID := fs.Int64("event", 0, "event (product) id")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rt, err := openRuntime(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graceprice-check: %v\n", err)
		return 1
	}
	defer rt.Close()

	return cli.NewReferenceCLI(rt.events, rt.reference).GracePriceCheckCommand(ctx, cli.GracePriceCheckOptions{
		ProdID:     *prodID,
		JSONOutput: *asJSON,
	})
}

func runRecompute(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("recompute", flag.ContinueOnError)
	events := fs.String("events", "", "comma separated event ids")
	progress := fs.Bool("progress", true, "show a progress bar on stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rt, err := openRuntime(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recompute: %v\n", err)
		return 1
	}
	defer rt.Close()

	return cli.NewRecomputeCLI(rt.reports).RecomputeCommand(ctx, cli.RecomputeOptions{
		Events:       *events,
		ShowProgress: *progress,
	})
}

// runJobs handles "jobs trigger|inspect|scheduled".
func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "jobs: expected trigger, inspect or scheduled")
		return 2
	}
	action, args := args[0], args[1:]
	fs := flag.NewFlagSet("jobs "+action, flag.ContinueOnError)
	name := fs.String("name", "", "job to trigger: warmup or bump-reference")
	events := fs.String("events", "", "comma separated event ids for warmup")
	reason := fs.String("reason", "", "reason recorded with a reference bump")
	size := fs.Int("size", 10, "page size for scheduled")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	c := cli.NewJobsCLI(redisOpts(cfg))
	defer c.Close()

	var out any
	switch action {
	case "trigger":
		var ids []int64
		if *events != "" {
			parsed, err := cli.ParseEventIDs(*events)
			if err != nil {
				fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
				return 1
			}
			ids = parsed
		}
		info, err := c.Trigger(ctx, *name, ids, *reason)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		out = map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue}
	case "inspect":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs inspect: %v\n", err)
			return 1
		}
		out = stats
	case "scheduled":
		tasks, err := c.ListScheduled(ctx, *size)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		rows := make([]map[string]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, map[string]string{"id": t.ID, "type": t.Type, "next": t.NextProcessAt.Format(time.RFC3339)})
		}
		out = rows
	default:
		fmt.Fprintf(os.Stderr, "jobs: unknown action %q\n", action)
		return 2
	}
	if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "jobs: encode json: %v\n", err)
		return 1
	}
	return 0
}
