package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"adaptive-quiz-service/internal/config"
	"adaptive-quiz-service/internal/infra/sqlite"
)

// NewAuditCmd lists recent generator calls from the SQLite audit log.
func NewAuditCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent LLM calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Audit.SQLitePath == "" {
				return fmt.Errorf("audit.sqlite_path not configured")
			}
			store, err := sqlite.Open(cfg.Audit.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tPURPOSE\tMODEL\tTOKENS(IN/OUT)\tLATENCY\tOK\tERROR")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%dms\t%t\t%s\n",
					r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Purpose, r.Model,
					r.InputTokens, r.OutputTokens, r.LatencyMs, r.Success, r.ErrorMessage)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records to show")
	return cmd
}
