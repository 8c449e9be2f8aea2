package history

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"dcc/internal/config"
	"dcc/internal/db"
	hist "dcc/internal/history"

	"github.com/spf13/cobra"
)

var limit int

var Cmd = &cobra.Command{
	Use:   "history [session]",
	Short: "List sessions, or the turns of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		database, err := db.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		store := hist.NewStore(database)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		if len(args) == 0 {
			sessions, err := store.ListSessions(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "SESSION\tTURNS\tUPDATED")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%d\t%s\n", s.ID, s.Turns, s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		}

		turns, err := store.Turns(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "TURN\tSTATUS\tQUESTION\tANSWER")
		for _, t := range turns {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Status, clip(t.Query, 40), clip(t.Answer, 60))
		}
		return nil
	},
}

func init() {
	Cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to list")
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
