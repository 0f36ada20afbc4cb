package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Rana718/datamock/internal/gateway"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	schemasLimit  int
	schemasOffset int
	schemasSearch string
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List schemas stored by the generation service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		if t := a.cfg.Timeout(); t > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}

		list, err := a.client.ListSchemas(ctx, gateway.ListOptions{
			Limit:  schemasLimit,
			Offset: schemasOffset,
			Search: schemasSearch,
		})
		if err != nil {
			return err
		}

		if len(list.Schemas) == 0 {
			color.Yellow("No schemas found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFILE\tDATABASES\tTABLES\tCREATED")
		for _, s := range list.Schemas {
			created := time.Unix(int64(s.CreatedAt), 0).Format("2006-01-02 15:04:05")
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", s.SchemaID, s.Filename, s.Databases, s.Tables, created)
		}
		w.Flush()

		p := list.Pagination
		fmt.Printf("\nShowing %d of %d", p.ReturnedCount, p.TotalSchemas)
		if p.HasMore {
			fmt.Printf(" (next page: --offset %d)", p.Offset+p.ReturnedCount)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	schemasCmd.Flags().IntVar(&schemasLimit, "limit", 20, "Maximum number of schemas to list")
	schemasCmd.Flags().IntVar(&schemasOffset, "offset", 0, "Number of schemas to skip")
	schemasCmd.Flags().StringVar(&schemasSearch, "search", "", "Only list schemas whose file name matches")
}
