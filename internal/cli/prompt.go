package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptResult contains the result of a user prompt interaction.
type PromptResult struct {
	// Accepted is true if the user accepted the prompt (typed "y" or "yes").
	Accepted bool
	// Cancelled is true if reading the answer failed.
	Cancelled bool
	// NonInteractive is true when no prompt was shown because stdin is not a terminal.
	NonInteractive bool
}

// ConfirmClear asks the user to confirm deleting a cache that holds entries
// coordinates. It returns immediately with NonInteractive set when
// interactive is false.
//
// The prompt defaults to "No" when the user presses Enter without input.
func ConfirmClear(writer io.Writer, reader io.Reader, interactive bool, entries int) PromptResult {
	if !interactive {
		return PromptResult{NonInteractive: true}
	}

	fmt.Fprintf(writer, "? Delete %d cached coordinate(s)? [y/N] ", entries)

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if scanner.Err() != nil {
			return PromptResult{Cancelled: true}
		}
		// EOF without error (Ctrl+D) declines.
		return PromptResult{}
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return PromptResult{Accepted: true}
	default:
		return PromptResult{}
	}
}
