package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/estatement"
	"github.com/porticus-lab/estatement/internal/config"
	"github.com/porticus-lab/estatement/internal/history"
	"github.com/porticus-lab/estatement/internal/pdftext"
)

// --- convert ---

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>...",
	Short: "Convert downloaded statements to text",
	Long: `Convert statements to text with the built-in extractor. Each file.pdf is
written to file.txt next to it.

Examples:
  estatement convert ~/statements/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, src := range args {
			dst := estatement.TextPath(src)
			if err := pdftext.WriteFile(src, dst); err != nil {
				printWarning("%s: %v", src, err)
				failed++
				continue
			}
			printSuccess("Converted to %s", dst)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) could not be converted", failed, len(args))
		}
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history [account-no]",
	Short: "List downloaded statements",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _ := cmd.Flags().GetString("db")
		if db == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db = cfg.History
		}
		if db == "" {
			return usageError{fmt.Errorf("--db or ESTATEMENT_HISTORY is required")}
		}

		store, err := history.Open(db)
		if err != nil {
			return err
		}
		defer store.Close()

		account := ""
		if len(args) == 1 {
			account = args[0]
		}
		entries, err := store.List(cmd.Context(), account)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No statements recorded.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ACCOUNT\tPERIOD\tFILE\tTEXT\tDOWNLOADED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d/%d\t%s\t%s\t%s\n",
				e.Account, e.Month, e.Year, e.Path, e.TextPath,
				e.DownloadedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().String("db", "", "history database file")
}

