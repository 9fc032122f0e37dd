// Package events fetches the PlanEvent event list and turns it into
// geocoding items.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/planevent/geocoder/internal/geocode"
)

// Errors returned by Fetch for responses it cannot interpret.
var (
	ErrNotJSON      = errors.New("events response is not JSON")
	ErrUnknownShape = errors.New("events response has no event list")
)

// listKeys are the object properties that may carry the event list, in order.
var listKeys = []string{"events", "data", "items"}

const maxErrorBody = 4 << 10

// ID is an event identifier. The API sends strings, older records numbers.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("event id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Event is one entry of the events API.
type Event struct {
	ID        ID       `json:"id"`
	Name      string   `json:"name"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	Location  string   `json:"location,omitempty"`
	Organizer string   `json:"organizer,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Coordinate returns the event's own coordinates. Zero values count as
// missing, as the map page has always treated them.
func (e Event) Coordinate() (geocode.Coordinate, bool) {
	if e.Latitude == nil || e.Longitude == nil || *e.Latitude == 0 || *e.Longitude == 0 {
		return geocode.Coordinate{}, false
	}
	return geocode.Coordinate{Lat: *e.Latitude, Lng: *e.Longitude}, true
}

// ToItems converts events to batch items. Events with coordinates pass
// through with them, events with a location string need geocoding, and the
// rest are skipped.
func ToItems(events []Event) []geocode.Item {
	items := make([]geocode.Item, 0, len(events))
	for _, e := range events {
		item := geocode.Item{ID: string(e.ID), Label: e.Name, Address: strings.TrimSpace(e.Location)}
		if coord, ok := e.Coordinate(); ok {
			item.Coordinate = &coord
		} else if item.Address == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// Client reads events from the PlanEvent REST API.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sends Authorization: Bearer <token>.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a client for the events endpoint at url.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads the event list. The body may be a bare array or an object
// carrying the array under "events", "data" or "items".
func (c *Client) Fetch(ctx context.Context) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building events request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &geocode.HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "application/json" {
		return nil, fmt.Errorf("%w: content type %s", ErrNotJSON, strconv.Quote(resp.Header.Get("Content-Type")))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	return Decode(body)
}

// Decode parses an events response body.
func Decode(body []byte) ([]Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var list []Event
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decoding events: %w", err)
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	for _, key := range listKeys {
		raw := bytes.TrimSpace(envelope[key])
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		var list []Event
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decoding events.%s: %w", key, err)
		}
		return list, nil
	}
	return nil, ErrUnknownShape
}
