// Package batch processes a list of items one at a time with progress tracking.
//
// Items are handled strictly in order, never concurrently, which is what a
// rate-limited upstream needs. Key features:
//   - Per-item callback with 0-based index
//   - Progress tracking (processed, failed, rate, ETA) with a callback after each item
//   - Optional continue-on-error so one bad item does not stop the rest
//   - Context-aware cancellation between items
package batch
