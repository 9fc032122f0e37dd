package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/planevent/geocoder/pkg/version"
)

// Nominatim defaults.
const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultTimeout      = 10 * time.Second

	// maxErrorBody caps how much of an error response is kept in HTTPError.
	maxErrorBody = 4 << 10
)

// Nominatim is a Provider backed by the OpenStreetMap Nominatim search API.
type Nominatim struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	client     *http.Client
}

// NominatimOption configures a Nominatim client.
type NominatimOption func(*Nominatim)

// WithBaseURL overrides the Nominatim endpoint. Blank values are ignored.
func WithBaseURL(baseURL string) NominatimOption {
	return func(n *Nominatim) {
		if strings.TrimSpace(baseURL) != "" {
			n.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the base HTTP client. Its transport is wrapped, not replaced.
func WithHTTPClient(client *http.Client) NominatimOption {
	return func(n *Nominatim) {
		if client != nil {
			n.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent sent with every request. Nominatim's
// usage policy rejects requests without an identifying agent.
func WithUserAgent(userAgent string) NominatimOption {
	return func(n *Nominatim) {
		if strings.TrimSpace(userAgent) != "" {
			n.userAgent = userAgent
		}
	}
}

// WithTimeout sets the per-request timeout used when the base client has none.
func WithTimeout(timeout time.Duration) NominatimOption {
	return func(n *Nominatim) {
		if timeout > 0 {
			n.timeout = timeout
		}
	}
}

// NewNominatim creates a Nominatim client.
func NewNominatim(opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		baseURL:   DefaultNominatimURL,
		userAgent: version.UserAgent(),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}

	base := n.httpClient
	if base == nil {
		base = &http.Client{}
	}
	client := *base
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.Transport = &userAgentRoundTripper{Wrapped: transport, UserAgent: n.userAgent}
	if client.Timeout == 0 {
		client.Timeout = n.timeout
	}
	n.client = &client
	return n
}

// BaseURL returns the configured endpoint.
func (n *Nominatim) BaseURL() string {
	return n.baseURL
}

// Search issues GET {base}/search?format=json&limit=1&q=<query>.
func (n *Nominatim) Search(ctx context.Context, query string) ([]Candidate, error) {
	endpoint := strings.TrimRight(n.baseURL, "/") + "/search"
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building nominatim request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	var candidates []Candidate
	if decodeErr := json.NewDecoder(resp.Body).Decode(&candidates); decodeErr != nil {
		return nil, fmt.Errorf("decoding nominatim response: %w", decodeErr)
	}
	return candidates, nil
}

// userAgentRoundTripper adds a User-Agent header to every request.
type userAgentRoundTripper struct {
	Wrapped   http.RoundTripper
	UserAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone request to avoid mutating the original
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.UserAgent)
	return rt.Wrapped.RoundTrip(clone)
}
