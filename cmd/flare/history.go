package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/flare-go/internal/domain"
)

var (
	historyStatus string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		filters := map[string]interface{}{"limit": historyLimit}
		if historyStatus != "" {
			if !domain.ValidateStatus(domain.DownloadStatus(historyStatus)) {
				return fmt.Errorf("invalid status %q", historyStatus)
			}
			filters["status"] = historyStatus
		}

		downloads, err := rt.downloadMgr.ListDownloads(filters)
		if err != nil {
			return err
		}
		if len(downloads) == 0 {
			fmt.Println("No downloads found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tTYPE\tSTATUS\tCREATED")
		for _, d := range downloads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(d.ID, 8),
				truncate(d.URL, 40),
				d.MediaType,
				d.Status,
				d.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.downloadMgr.GetStats()
		if err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Processing: %d\n", stats.Processing)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flare %s\n", domain.ParseVersion(domain.CurrentVersion))
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyStatus, "status", "s", "", "Filter by status (processing, completed, failed, cancelled)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of downloads to list")
}
