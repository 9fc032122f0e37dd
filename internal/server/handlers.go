package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/planevent/geocoder/internal/geocode"
)

// maxBatchItems bounds one batch request; at the default provider interval
// it keeps a full batch of misses under the default write timeout.
const maxBatchItems = 500

type ctxKey string

const requestCtxKey ctxKey = "geocoder.request_ctx"

type errorResponse struct {
	Error string `json:"error"`
}

type statsResponse struct {
	Size        int        `json:"size"`
	Expired     int        `json:"expired"`
	OldestEntry *time.Time `json:"oldest_entry"`
}

type purgeResponse struct {
	Removed int `json:"removed"`
}

// requestContext returns the context built for this request by Handler.
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if c, ok := ctx.UserValue(requestCtxKey).(context.Context); ok {
		return c
	}
	return context.Background()
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGeocode(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	address := string(args.Peek("address"))
	if err := geocode.ValidateAddress(address); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}

	// Requests from many clients share one provider, so spacing is the default.
	skipDelay := false
	if args.Has("skip_delay") {
		v, err := strconv.ParseBool(string(args.Peek("skip_delay")))
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "skip_delay must be a boolean")
			return
		}
		skipDelay = v
	}

	coord, ok := s.service.GetCachedCoordinates(requestContext(ctx), address, skipDelay)
	if !ok {
		writeError(ctx, fasthttp.StatusNotFound, "not found")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, coord)
}

func (s *Server) handleBatch(ctx *fasthttp.RequestCtx) {
	var items []geocode.Item
	if err := json.Unmarshal(ctx.PostBody(), &items); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "body must be a JSON array of items")
		return
	}
	if len(items) == 0 {
		writeError(ctx, fasthttp.StatusBadRequest, "no items")
		return
	}
	if len(items) > maxBatchItems {
		writeError(ctx, fasthttp.StatusRequestEntityTooLarge,
			"at most "+strconv.Itoa(maxBatchItems)+" items per batch")
		return
	}

	reqCtx := requestContext(ctx)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/x-ndjson")
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		batchCtx, cancel := context.WithCancel(reqCtx)
		defer cancel()

		enc := json.NewEncoder(w)
		err := s.service.GeocodeWithProgress(batchCtx, items, func(o geocode.Outcome) {
			if encErr := enc.Encode(o); encErr != nil {
				cancel()
				return
			}
			if flushErr := w.Flush(); flushErr != nil {
				cancel()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			_ = enc.Encode(errorResponse{Error: err.Error()})
			_ = w.Flush()
		}
	})
}

func (s *Server) handleStats(ctx *fasthttp.RequestCtx) {
	stats, err := s.service.GetCacheStats(requestContext(ctx))
	if err != nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, statsResponse{
		Size:        stats.Size,
		Expired:     stats.Expired,
		OldestEntry: stats.OldestEntry,
	})
}

func (s *Server) handleClear(ctx *fasthttp.RequestCtx) {
	if err := s.service.ClearCache(requestContext(ctx)); err != nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, err.Error())
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (s *Server) handlePurge(ctx *fasthttp.RequestCtx) {
	removed, err := s.service.PurgeExpired(requestContext(ctx))
	if err != nil {
		writeError(ctx, fasthttp.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, purgeResponse{Removed: removed})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = fasthttp.StatusInternalServerError
		body = []byte(`{"error":"encoding response"}`)
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorResponse{Error: msg})
}
