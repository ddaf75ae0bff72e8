package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sift/internal/collector"
	"sift/internal/logging"
	"sift/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the durable event queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueSyncCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queued events awaiting delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if len(events) == 0 {
				cmd.Println("Queue is empty.")
				return nil
			}

			rows := make([][]string, 0, len(events))
			for _, qe := range events {
				rows = append(rows, []string{
					shortID(qe.ID),
					qe.Event.Type,
					truncate(qe.Event.URL, 60),
					qe.EnqueuedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.Itoa(qe.Retries),
				})
			}
			cmd.Println(renderTable(
				[]string{"ID", "Event", "URL", "Enqueued", "Retries"},
				rows,
			))
			cmd.Printf("%d event(s) queued at %s\n", len(events), store.Path())
			return nil
		},
	}
}

func newQueueSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Deliver one batch of queued events to the collector",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.OpenStore(cfg.QueueDBPath())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			client, err := collector.New(cfg.Collector.BaseURL, cfg.Collector.APIToken)
			if err != nil {
				return err
			}

			q, err := queue.New(cmd.Context(), store, client,
				queue.WithMaxSize(cfg.Queue.MaxSize),
				queue.WithMaxRetries(cfg.Queue.MaxRetries),
				queue.WithBatchSize(cfg.Queue.BatchSize),
				queue.WithLogger(logging.NewNop()),
			)
			if err != nil {
				return err
			}
			defer q.Close()

			pending := q.Length()
			if pending == 0 {
				cmd.Println("Queue is empty, nothing to sync.")
				return nil
			}

			syncCtx, cancel := context.WithTimeout(cmd.Context(),
				time.Duration(cfg.Collector.TimeoutSeconds)*time.Second)
			defer cancel()

			res, err := q.Sync(syncCtx)
			if err != nil {
				return err
			}
			cmd.Printf("Synced %d event(s), %d failed, %d remaining.\n",
				res.Synced, res.Failed, q.Length())
			if res.Synced == 0 && res.Failed > 0 {
				return errors.New("no events were accepted; is the collector reachable?")
			}
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every queued event without delivering it",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if len(events) == 0 {
				cmd.Println("Queue is already empty.")
				return nil
			}
			if !force {
				return fmt.Errorf("refusing to drop %d undelivered event(s); rerun with --force", len(events))
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("Dropped %d event(s).\n", len(events))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Drop events without confirmation")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
