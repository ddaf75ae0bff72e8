package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"sift/internal/adapter"
	"sift/internal/agent"
	"sift/internal/logging"
	"sift/internal/page"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <url>",
		Short: "Fetch a page and show what the matching adapter extracts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := &http.Client{
				Timeout: time.Duration(cfg.Collector.TimeoutSeconds) * time.Second,
			}
			doc, err := page.FetchDocument(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}

			registry, err := agent.BuildRegistry()
			if err != nil {
				return err
			}
			a := registry.Find(args[0])
			if a == nil {
				return fmt.Errorf("no adapter available for %s", args[0])
			}

			ic := adapter.InitContext{
				Observer: page.NewStaticObserver(doc),
				Logger:   logging.NewNop(),
			}
			if err := a.Init(cmd.Context(), ic); err != nil {
				return fmt.Errorf("initialize %s adapter: %w", a.ID(), err)
			}
			defer a.Destroy()

			md, err := a.ExtractMetadata(cmd.Context())
			if err != nil {
				return fmt.Errorf("extract metadata: %w", err)
			}
			if md == nil {
				cmd.Printf("Adapter %q matched but the page exposed nothing usable.\n", a.ID())
				return nil
			}

			rows := [][]string{
				{"Adapter", a.ID()},
				{"Content ID", md.ContentID},
				{"Title", md.Title},
				{"Creator", md.CreatorName},
				{"Type", string(md.ContentType)},
				{"Canonical URL", md.CanonicalURL},
			}
			if md.DurationSeconds > 0 {
				rows = append(rows, []string{"Duration", formatDuration(md.DurationSeconds)})
			}
			if md.ThumbnailURL != "" {
				rows = append(rows, []string{"Thumbnail", truncate(md.ThumbnailURL, 70)})
			}
			cmd.Println(renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return d.Round(time.Second).String()
}
