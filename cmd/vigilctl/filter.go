package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"vigil/filter"
	"vigil/paging"
)

func newFilterCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Work with filter strings offline",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "normalize <filter>",
		Short: "Print the canonical form of a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), filter.Parse(args[0]).String())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "merge <base> <overlay>",
		Short: "Merge overlay keywords into base",
		Long: `Merge the keywords of overlay into base. Every keyword present in overlay
replaces all of its terms in base; other base terms are kept.

Example:
  vigilctl filter merge "owner=admin rows=25" "owner=ops first=26"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			merged := filter.Parse(args[0]).MergeKeywords(filter.Parse(args[1]))
			_, err := fmt.Fprintln(cmd.OutOrStdout(), merged.String())
			return err
		},
	})

	cmd.AddCommand(newPagesCmd(opts))

	return cmd
}

type pagesOptions struct {
	all      int
	filtered int
	length   int
}

// pageReport is the json form of "filter pages".
type pageReport struct {
	Filter      string                  `json:"filter"`
	Counts      filter.CollectionCounts `json:"counts"`
	IsFirst     bool                    `json:"is_first"`
	HasPrevious bool                    `json:"has_previous"`
	HasNext     bool                    `json:"has_next"`
	IsLast      bool                    `json:"is_last"`
	Pages       paging.PageLinks        `json:"pages"`
}

func newPagesCmd(opts *options) *cobra.Command {
	pOpts := &pagesOptions{}

	cmd := &cobra.Command{
		Use:   "pages <filter>",
		Short: "Show counts and navigation targets for a filter",
		Long: `Compute the counts a page would report and the filter each navigation
control would request.

Example:
  vigilctl filter pages "first=11 rows=10" --filtered 25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := buildPageReport(filter.Parse(args[0]), *pOpts)
			return writePageReport(cmd.OutOrStdout(), opts.format, report)
		},
	}

	cmd.Flags().IntVar(&pOpts.filtered, "filtered", 0, "number of entities matching the filter")
	cmd.Flags().IntVar(&pOpts.all, "all", -1, "number of entities without filtering (defaults to --filtered)")
	cmd.Flags().IntVar(&pOpts.length, "length", -1, "entities on the page (defaults to a full page)")

	return cmd
}

func buildPageReport(f filter.Filter, pOpts pagesOptions) pageReport {
	if f.Rows() == 0 {
		f = f.SetInt(filter.KeywordRows, filter.DefaultRows)
	}
	first := f.FirstIndex()
	rows := f.Rows()

	length := pOpts.length
	if length < 0 {
		length = max(pOpts.filtered-first+1, 0)
		if rows > 0 {
			length = min(length, rows)
		}
	}
	all := pOpts.all
	if all < 0 {
		all = pOpts.filtered
	}

	counts := filter.NewCollectionCounts(filter.Counts{
		First:    first,
		All:      all,
		Filtered: pOpts.filtered,
		Length:   length,
		Rows:     rows,
	})

	return pageReport{
		Filter:      f.String(),
		Counts:      counts,
		IsFirst:     counts.IsFirst(),
		HasPrevious: counts.HasPrevious(),
		HasNext:     counts.HasNext(),
		IsLast:      counts.IsLast(),
		Pages:       paging.Links(f, counts),
	}
}

func writePageReport(w io.Writer, format string, r pageReport) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	c := r.Counts
	lines := []struct {
		label string
		value interface{}
	}{
		{"filter", r.Filter},
		{"first", c.First()},
		{"last", c.Last()},
		{"length", c.Length()},
		{"rows", c.Rows()},
		{"filtered", c.Filtered()},
		{"all", c.All()},
		{"is_first", r.IsFirst},
		{"has_previous", r.HasPrevious},
		{"has_next", r.HasNext},
		{"is_last", r.IsLast},
		{"first_page", link(r.Pages.First)},
		{"previous_page", link(r.Pages.Previous)},
		{"next_page", link(r.Pages.Next)},
		{"last_page", link(r.Pages.Last)},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-14s %v\n", l.label+":", l.value); err != nil {
			return err
		}
	}
	return nil
}

func link(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
