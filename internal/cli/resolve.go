package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/planevent/geocoder/internal/geocode"
)

// Output formats shared by resolve, batch and cache stats.
const (
	outputText = "text"
	outputJSON = "json"
)

// exitCodeNotFound is returned when at least one address did not resolve.
const exitCodeNotFound = 2

type resolveResult struct {
	Address    string              `json:"address"`
	Found      bool                `json:"found"`
	Coordinate *geocode.Coordinate `json:"coordinate,omitempty"`
}

func newResolveCmd(state *rootState) *cobra.Command {
	var (
		output string
		wait   bool
	)

	cmd := &cobra.Command{
		Use:   "resolve ADDRESS [ADDRESS...]",
		Short: "Resolve addresses to coordinates",
		Long: `Resolves each address through the cache, falling back to Nominatim on a miss.

A single lookup skips the rate-limit wait unless --wait is given; several
addresses are always spaced by the provider's minimum interval. The command
exits with status 2 when any address cannot be resolved.`,
		Example: `  geocoder resolve "Place Bellecour, Lyon"
  geocoder resolve --output json "Parc de la Tête d'Or" "Vieux Lyon"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputText && output != outputJSON {
				return fmt.Errorf("unsupported output format %q", output)
			}
			return runResolve(cmd, state, args, output, wait)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text or json")
	cmd.Flags().BoolVar(&wait, "wait", false, "honour the rate limit even for a single lookup")
	return cmd
}

func runResolve(cmd *cobra.Command, state *rootState, addresses []string, output string, wait bool) error {
	a, err := state.App()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if initErr := a.EnsureInitialized(ctx); initErr != nil {
		return initErr
	}

	skipDelay := len(addresses) == 1 && !wait
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)

	missing := 0
	for _, address := range addresses {
		result := resolveResult{Address: address}
		if coord, ok := a.GetCachedCoordinates(ctx, address, skipDelay); ok {
			result.Found = true
			result.Coordinate = &coord
		} else {
			missing++
		}

		if writeErr := writeResolveResult(out, enc, output, result); writeErr != nil {
			return writeErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}

	if missing > 0 {
		return &ExitError{
			Code:   exitCodeNotFound,
			Reason: fmt.Sprintf("no coordinates found for %d of %d address(es)", missing, len(addresses)),
		}
	}
	return nil
}

func writeResolveResult(out io.Writer, enc *json.Encoder, output string, result resolveResult) error {
	if output == outputJSON {
		return enc.Encode(result)
	}
	if !result.Found {
		_, err := fmt.Fprintf(out, "%s\tnot found\n", result.Address)
		return err
	}
	_, err := fmt.Fprintf(out, "%s\t%s\n", result.Address, result.Coordinate)
	return err
}
