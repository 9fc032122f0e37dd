package batch

import (
	"context"
	"errors"
	"fmt"
)

// Common batch processing errors.
var (
	ErrNilCallback = errors.New("item callback cannot be nil")
	ErrEmptyItems  = errors.New("items slice cannot be empty")
)

// ItemCallback processes a single item. index is the item's 0-based position.
type ItemCallback[T any] func(ctx context.Context, item T, index int) error

// ProgressCallback is invoked after each item, failed or not.
type ProgressCallback func(progress *Progress)

// Processor runs an ItemCallback over a slice of items sequentially.
type Processor[T any] struct {
	onProgress      ProgressCallback
	continueOnError bool
}

// NewProcessor creates a processor that stops on the first failed item.
func NewProcessor[T any]() *Processor[T] {
	return &Processor[T]{}
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// WithContinueOnError makes the processor record failed items and carry on.
// Process then returns all item errors joined together.
func (p *Processor[T]) WithContinueOnError(enabled bool) *Processor[T] {
	p.continueOnError = enabled
	return p
}

// Process calls callback for every item in order. Cancellation of ctx is
// checked before each item; items already started always run to completion.
func (p *Processor[T]) Process(ctx context.Context, items []T, callback ItemCallback[T]) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}

	if callback == nil {
		return ErrNilCallback
	}

	progress := NewProgress(len(items))
	var errs []error

	for index, item := range items {
		select {
		case <-ctx.Done():
			return errors.Join(append(errs, ctx.Err())...)
		default:
		}

		err := callback(ctx, item, index)
		if err != nil {
			err = fmt.Errorf("item %d failed: %w", index, err)
			if !p.continueOnError {
				progress.AddProcessed(true)
				p.notify(progress)
				return err
			}
			errs = append(errs, err)
		}

		progress.AddProcessed(err != nil)
		p.notify(progress)
	}

	return errors.Join(errs...)
}

func (p *Processor[T]) notify(progress *Progress) {
	if p.onProgress != nil {
		p.onProgress(progress)
	}
}
