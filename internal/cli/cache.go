package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// cacheStatsOutput is the JSON shape of `cache stats`.
type cacheStatsOutput struct {
	Backend     string     `json:"backend"`
	Location    string     `json:"location"`
	Expiry      string     `json:"expiry"`
	Size        int        `json:"size"`
	Expired     int        `json:"expired"`
	OldestEntry *time.Time `json:"oldest_entry,omitempty"`
}

func newCacheCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Geocode cache maintenance commands"}
	cmd.AddCommand(newCacheStatsCmd(state), newCacheClearCmd(state), newCachePurgeCmd(state))
	return cmd
}

func newCacheStatsCmd(state *rootState) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != outputText && output != outputJSON {
				return fmt.Errorf("unsupported output format %q", output)
			}

			a, err := state.App()
			if err != nil {
				return err
			}
			stats, err := a.GetCacheStats(cmd.Context())
			if err != nil {
				return err
			}

			result := cacheStatsOutput{
				Backend:     state.cfg.Cache.Backend,
				Location:    a.Cache().Storage().Location(),
				Expiry:      state.cfg.Cache.Expiry,
				Size:        stats.Size,
				Expired:     stats.Expired,
				OldestEntry: stats.OldestEntry,
			}
			if output == outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return renderCacheStats(cmd, result, time.Now())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text or json")
	return cmd
}

func renderCacheStats(cmd *cobra.Command, stats cacheStatsOutput, now time.Time) error {
	p := message.NewPrinter(language.English)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	p.Fprintf(w, "Backend:\t%s\n", stats.Backend)
	p.Fprintf(w, "Location:\t%s\n", stats.Location)
	p.Fprintf(w, "Expiry:\t%s\n", stats.Expiry)
	p.Fprintf(w, "Entries:\t%d\n", stats.Size)
	p.Fprintf(w, "Expired:\t%d\n", stats.Expired)
	if stats.OldestEntry != nil {
		age := now.Sub(*stats.OldestEntry).Round(time.Second)
		p.Fprintf(w, "Oldest entry:\t%s (%s ago)\n", stats.OldestEntry.Format(time.RFC3339), age)
	} else {
		p.Fprintf(w, "Oldest entry:\t-\n")
	}
	return w.Flush()
}

func newCacheClearCmd(state *rootState) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached coordinate",
		Long: `Deletes the whole cache document. On a terminal the command asks for
confirmation first; non-interactive runs must pass --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.App()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if !yes {
				stats, statsErr := a.GetCacheStats(ctx)
				if statsErr != nil {
					return statsErr
				}
				result := ConfirmClear(cmd.OutOrStdout(), cmd.InOrStdin(), readsFromTerminal(cmd), stats.Size)
				if !result.Accepted {
					if result.NonInteractive {
						return errors.New("refusing to clear the cache without --yes in a non-interactive session")
					}
					cmd.Println("Aborted.")
					return nil
				}
			}

			if clearErr := a.ClearCache(ctx); clearErr != nil {
				return clearErr
			}
			logger.Info().Ctx(ctx).Msg("cache cleared")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newCachePurgeCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove expired entries from the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.App()
			if err != nil {
				return err
			}
			removed, err := a.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			// Initialization already dropped whatever had expired when the
			// cache was opened; count those too.
			removed += a.PurgedAtInit()
			p := message.NewPrinter(language.English)
			_, err = p.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", removed)
			return err
		},
	}
}
