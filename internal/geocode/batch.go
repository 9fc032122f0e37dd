package geocode

import (
	"context"
	"errors"

	"github.com/planevent/geocoder/internal/batch"
)

// Item is one entry of a batch: something with a label and an address.
// Items that already carry a Coordinate pass through without a provider call.
type Item struct {
	ID         string      `json:"id"`
	Label      string      `json:"label,omitempty"`
	Address    string      `json:"address"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

// Outcome reports how one batch item resolved.
type Outcome struct {
	Item       Item                   `json:"item"`
	Coordinate *Coordinate            `json:"coordinate,omitempty"`
	Found      bool                   `json:"found"`
	Completed  int                    `json:"completed"`
	Total      int                    `json:"total"`
	Progress   batch.ProgressSnapshot `json:"progress"`
}

// ProgressFunc receives each Outcome as soon as its item is resolved.
type ProgressFunc func(Outcome)

// ResolveAll resolves items strictly in input order with rate limiting on,
// calling onProgress once per item right after it resolves, found or not. A
// failed item never stops the batch. The only error is the context's, when
// it is cancelled before every item has been handled.
func ResolveAll(ctx context.Context, resolver AddressResolver, items []Item, onProgress ProgressFunc) error {
	if len(items) == 0 {
		return nil
	}

	var current Outcome
	processor := batch.NewProcessor[Item]().
		WithContinueOnError(true).
		WithProgressCallback(func(progress *batch.Progress) {
			snapshot := progress.Snapshot()
			current.Completed = snapshot.ProcessedItems
			current.Total = snapshot.TotalItems
			current.Progress = snapshot
			if onProgress != nil {
				onProgress(current)
			}
		})

	err := processor.Process(ctx, items, func(ctx context.Context, item Item, _ int) error {
		current = Outcome{Item: item}
		if item.Coordinate != nil {
			coord := *item.Coordinate
			current.Coordinate = &coord
			current.Found = true
			return nil
		}
		if coord, ok := resolver.Resolve(ctx, item.Address, false); ok {
			current.Coordinate = &coord
			current.Found = true
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		return err
	}
	return nil
}
