package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/client"
	"vigil/filter"
	"vigil/models"
	"vigil/paging"
)

type listOptions struct {
	filter  string
	page    string
	timeout time.Duration
}

func newListCmd(opts *options) *cobra.Command {
	lOpts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List entities of one type",
		Long: `Fetch one page of entities from the server. With --page the command
fetches the filter first, then navigates from the page it got back.

Example:
  vigilctl list targets --filter "tag=dmz rows=20"
  vigilctl list results --filter "severity>=7 first=21" --page next`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := models.ParseEntityType(args[0])
			if err != nil {
				return err
			}
			action, err := paging.ParseAction(lOpts.page)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), lOpts.timeout)
			defer cancel()

			state, err := runList(ctx, opts, entityType, filter.Parse(lOpts.filter), action)
			if err != nil {
				return err
			}
			return writeList(cmd.OutOrStdout(), opts.format, state)
		},
	}

	cmd.Flags().StringVarP(&lOpts.filter, "filter", "f", "", "filter string")
	cmd.Flags().StringVar(&lOpts.page, "page", "", "navigate after fetching (first|previous|next|last)")
	cmd.Flags().DurationVar(&lOpts.timeout, "timeout", 30*time.Second, "request timeout")

	return cmd
}

func runList(ctx context.Context, opts *options, entityType models.EntityType, f filter.Filter, action paging.Action) (paging.State[models.Entity], error) {
	fetcher := client.EntityFetcher{
		Client: client.New(opts.server, opts.token),
		Type:   entityType,
	}
	coord := paging.NewCoordinator[models.Entity](fetcher, f).
		WithLogger(log.WithField("type", entityType))

	state, _, err := coord.Reload(ctx)
	if err != nil {
		return state, err
	}
	if action == paging.Reload {
		return state, nil
	}

	log.WithFields(log.Fields{"action": action, "filter": state.Filter.String()}).Debug("navigating")
	state, _, err = coord.Navigate(ctx, action)
	return state, err
}

// listReport is the json form of "list".
type listReport struct {
	Filter   string                  `json:"filter"`
	Counts   filter.CollectionCounts `json:"counts"`
	Entities []models.Entity         `json:"entities"`
}

func writeList(w io.Writer, format string, state paging.State[models.Entity]) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listReport{
			Filter:   state.Filter.String(),
			Counts:   state.Counts,
			Entities: state.Items,
		})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tOWNER\tSTATUS\tSEVERITY\tTAGS\tMODIFIED")
	for _, e := range state.Items {
		severity := "-"
		if e.Severity != nil {
			severity = fmt.Sprintf("%.1f", *e.Severity)
		}
		modified := "-"
		if !e.ModifiedAt.IsZero() {
			modified = e.ModifiedAt.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Name, e.Owner, e.Status, severity, strings.Join(e.Tags, ","), modified)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	c := state.Counts
	_, err := fmt.Fprintf(w, "\n%d-%d of %d (%d total)  filter: %s\n",
		c.First(), c.Last(), c.Filtered(), c.All(), state.Filter.String())
	return err
}
