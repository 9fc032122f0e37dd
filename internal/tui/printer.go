package tui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/planevent/geocoder/internal/geocode"
)

// OutcomePrinter writes batch outcomes when no interactive terminal is attached.
type OutcomePrinter interface {
	Print(outcome geocode.Outcome) error
	Finish(err error) error
}

// PlainPrinter writes one human-readable line per outcome followed by a summary.
type PlainPrinter struct {
	w       io.Writer
	found   int
	missing int
}

// NewPlainPrinter creates a PlainPrinter writing to w.
func NewPlainPrinter(w io.Writer) *PlainPrinter {
	return &PlainPrinter{w: w}
}

// Print writes the line for one outcome.
func (p *PlainPrinter) Print(outcome geocode.Outcome) error {
	prefix := fmt.Sprintf("[%d/%d]", outcome.Completed, outcome.Total)
	label := itemLabel(outcome.Item)

	if !outcome.Found || outcome.Coordinate == nil {
		p.missing++
		_, err := fmt.Fprintf(p.w, "%s %s %s: not found (%s)\n", prefix, IconMissing, label, outcome.Item.Address)
		return err
	}
	p.found++
	_, err := fmt.Fprintf(p.w, "%s %s %s: %s\n", prefix, IconFound, label, outcome.Coordinate)
	return err
}

// Finish writes the summary line.
func (p *PlainPrinter) Finish(batchErr error) error {
	status := "done"
	if batchErr != nil {
		status = "stopped: " + batchErr.Error()
	}
	_, err := fmt.Fprintf(p.w, "%s, %d found, %d not found\n", status, p.found, p.missing)
	return err
}

// JSONPrinter writes one JSON object per outcome (NDJSON).
type JSONPrinter struct {
	enc *json.Encoder
}

// NewJSONPrinter creates a JSONPrinter writing to w.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{enc: json.NewEncoder(w)}
}

// Print encodes one outcome.
func (p *JSONPrinter) Print(outcome geocode.Outcome) error {
	return p.enc.Encode(outcome)
}

// Finish is a no-op; every line is already complete.
func (p *JSONPrinter) Finish(error) error {
	return nil
}
