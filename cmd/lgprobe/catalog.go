package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lgprobe/internal/termui"
)

func newCatalogCmd(o *rootOptions) *cobra.Command {
	var url, file string
	cmd := &cobra.Command{
		Use:     "catalog",
		Short:   "List the payloads available for probing",
		Example: "  lgprobe catalog --url https://lg.example.net",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := o.loadCatalog(cmd.Context(), file, url)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tSIZE\tURL")
			for _, d := range cat.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Label, termui.FormatBytes(d.TotalBytes), d.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Looking-glass base URL")
	cmd.Flags().StringVar(&file, "file", "", "Payload catalog file")
	return cmd
}
