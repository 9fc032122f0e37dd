package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/planevent/geocoder/internal/events"
	"github.com/planevent/geocoder/internal/geocode"
	"github.com/planevent/geocoder/internal/tui"
)

type batchOptions struct {
	output      string
	fromEvents  bool
	eventsURL   string
	eventsToken string
	noTUI       bool
}

func newBatchCmd(state *rootState) *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch [FILE]",
		Short: "Geocode a list of addresses or events in order",
		Long: `Resolves every item sequentially, honouring the provider rate limit, and
reports each result as soon as it is known.

Input is read from FILE, or stdin when FILE is "-" or omitted. A JSON body
(an array of events, or an object holding one under "events", "data" or
"items") is read as PlanEvent events; anything else is one address per line,
with blank lines and lines starting with # ignored. --events fetches the list
from the PlanEvent API instead.

On a terminal progress is shown interactively; otherwise one line is written
per item.`,
		Example: `  geocoder batch addresses.txt
  cat events.json | geocoder batch --output json
  geocoder batch --events --events-url https://planevent.example/api/events`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputText && opts.output != outputJSON {
				return fmt.Errorf("unsupported output format %q", opts.output)
			}
			if opts.fromEvents && len(args) > 0 {
				return errors.New("--events cannot be combined with an input file")
			}
			return runBatch(cmd, state, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output format: text or json")
	cmd.Flags().BoolVar(&opts.fromEvents, "events", false, "fetch events from the PlanEvent API")
	cmd.Flags().StringVar(&opts.eventsURL, "events-url", "", "events API URL (overrides config)")
	cmd.Flags().StringVar(&opts.eventsToken, "events-token", "", "bearer token for the events API (overrides config)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "never show the interactive progress view")
	return cmd
}

func runBatch(cmd *cobra.Command, state *rootState, args []string, opts batchOptions) error {
	ctx := cmd.Context()

	a, err := state.App()
	if err != nil {
		return err
	}

	var items []geocode.Item
	if opts.fromEvents {
		items, err = fetchEventItems(ctx, state, opts)
	} else {
		items, err = readInputItems(cmd, args)
	}
	if err != nil {
		return err
	}
	logger.Info().Ctx(ctx).Int("items", len(items)).Msg("batch loaded")

	if len(items) == 0 {
		_, err = fmt.Fprintln(cmd.ErrOrStderr(), "nothing to geocode")
		return err
	}
	if initErr := a.EnsureInitialized(ctx); initErr != nil {
		return initErr
	}

	run := func(ctx context.Context, onProgress geocode.ProgressFunc) error {
		return a.GeocodeWithProgress(ctx, items, onProgress)
	}

	if opts.output == outputText && !opts.noTUI && writesToTerminal(cmd) {
		model, runErr := tui.RunBatch(ctx, len(items), run)
		if runErr != nil {
			return runErr
		}
		return model.Err()
	}

	var printer tui.OutcomePrinter = tui.NewPlainPrinter(cmd.OutOrStdout())
	if opts.output == outputJSON {
		printer = tui.NewJSONPrinter(cmd.OutOrStdout())
	}
	return printBatch(ctx, printer, run)
}

// printBatch runs the batch and writes each outcome through printer. A write
// failure stops the batch.
func printBatch(ctx context.Context, printer tui.OutcomePrinter, run tui.BatchRunner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeErr error
	batchErr := run(ctx, func(outcome geocode.Outcome) {
		if writeErr != nil {
			return
		}
		if err := printer.Print(outcome); err != nil {
			writeErr = fmt.Errorf("writing result: %w", err)
			cancel()
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if err := printer.Finish(batchErr); err != nil {
		return err
	}
	return batchErr
}

func writesToTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && isTerminal(f)
}

func readsFromTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && isTerminal(f)
}

func fetchEventItems(ctx context.Context, state *rootState, opts batchOptions) ([]geocode.Item, error) {
	url := state.cfg.Events.URL
	if opts.eventsURL != "" {
		url = opts.eventsURL
	}
	if url == "" {
		return nil, errors.New("no events URL: set events.url, GEOCODER_EVENTS_URL or --events-url")
	}
	token := state.cfg.Events.Token
	if opts.eventsToken != "" {
		token = opts.eventsToken
	}

	list, err := events.NewClient(url, events.WithToken(token)).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return events.ToItems(list), nil
}

func readInputItems(cmd *cobra.Command, args []string) ([]geocode.Item, error) {
	var r io.Reader = cmd.InOrStdin()
	name := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		r = f
		name = args[0]
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return parseItems(data)
}

// parseItems reads either a PlanEvent events document or one address per line.
func parseItems(data []byte) ([]geocode.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		list, err := events.Decode(trimmed)
		if err != nil {
			return nil, err
		}
		return events.ToItems(list), nil
	}

	var items []geocode.Item
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, geocode.Item{ID: strconv.Itoa(lineNo), Label: line, Address: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading addresses: %w", err)
	}
	return items, nil
}
