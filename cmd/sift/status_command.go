package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sift/internal/ipc"
	"sift/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running agent and its capture context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := ipc.Dial(cfg.SocketPath())
			if err != nil {
				return printOfflineStatus(cmd, ctx)
			}
			defer func() { _ = client.Close() }()

			status, err := client.Status()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Running", strconv.FormatBool(status.Running)},
				{"PID", strconv.Itoa(status.PID)},
				{"Queued events", strconv.Itoa(status.QueueLength)},
				{"Queue database", status.QueueDBPath},
			}
			if status.CurrentURL != "" {
				rows = append(rows, []string{"Current URL", truncate(status.CurrentURL, 70)})
			}
			if status.Platform != "" {
				rows = append(rows, []string{"Platform", status.Platform})
			}
			if status.ContentID != "" {
				rows = append(rows, []string{"Content ID", status.ContentID})
			}
			cmd.Println(renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

func newSignalsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "Collect identification signals from the active capture context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := ipc.Dial(cfg.SocketPath())
			if err != nil {
				return fmt.Errorf("no running agent at %s: %w", cfg.SocketPath(), err)
			}
			defer func() { _ = client.Close() }()

			signals, err := client.Signals()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"URL", truncate(signals.URL, 70)},
				{"Platform", signals.Platform},
				{"Content ID", signals.ContentID},
				{"Title", signals.Title},
				{"Confidence", fmt.Sprintf("%.2f", signals.Confidence)},
				{"Escalated", strconv.FormatBool(signals.Escalated)},
			}
			if signals.EngagementScore > 0 || signals.Engaged {
				rows = append(rows,
					[]string{"Engagement score", fmt.Sprintf("%.1f", signals.EngagementScore)},
					[]string{"Engaged", strconv.FormatBool(signals.Engaged)})
			}
			if signals.AudioHash != "" {
				rows = append(rows, []string{"Audio hash", signals.AudioHash})
			}
			if signals.VisualHash != "" {
				rows = append(rows, []string{"Visual hash", signals.VisualHash})
			}
			cmd.Println(renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

// printOfflineStatus falls back to the on-disk queue when no agent answers.
func printOfflineStatus(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.OpenStore(cfg.QueueDBPath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	events, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Println("Agent is not running.")
	cmd.Printf("%d event(s) queued at %s\n", len(events), store.Path())
	return nil
}
