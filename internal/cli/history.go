package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/emberhq/kilnd/internal/config"
	"github.com/emberhq/kilnd/internal/ledger"
)

// Represents the 'kilnd history' command.
type HistoryCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum number of builds to show. 0 shows all."`
}

// Executes the history command.
//
// Reads the ledger database directly; a running daemon is not required.
func (c *HistoryCmd) Run(ctx context.Context) error {
	cfg, err := config.Load(RootCmd.Config)
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	builds, err := store.List(ctx, c.Limit)
	if err != nil {
		return err
	}

	fmt.Println(renderHistory(builds))
	return nil
}

// Renders build records as a table, newest first.
func renderHistory(builds []*ledger.Build) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "RESOURCE", "STATUS", "STARTED", "DURATION", "IMAGE"})

	for _, b := range builds {
		duration := ""
		if b.FinishedAt != nil {
			duration = b.Duration().Truncate(10 * time.Millisecond).String()
		}

		image := b.ImageDigest
		if b.Status == ledger.StatusFailed {
			image = b.Error
		}

		tw.AppendRow(table.Row{
			shortID(b.ID.String()),
			b.Resource,
			b.Status,
			b.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			truncate(image, 40),
		})
	}

	return tw.Render()
}

// Returns the first UUID segment, enough to distinguish recent builds.
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
	return s[:max-3] + "..."
}
