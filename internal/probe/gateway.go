package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// GatewayProbe asks a device location gateway for a single high-accuracy
// fix over HTTP. The gateway is the bridge to the worker's handset; it
// answers one request with one reading and does no buffering of its own.
type GatewayProbe struct {
	baseURL    string
	httpClient *http.Client
}

// NewGatewayProbe creates a probe against the given gateway base URL.
// The supplied client may be nil, in which case http.DefaultClient is used;
// deadlines come from the Acquire context either way.
func NewGatewayProbe(baseURL string, httpClient *http.Client) (*GatewayProbe, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GatewayProbe{baseURL: baseURL, httpClient: httpClient}, nil
}

// fixResponse is the gateway wire format.
type fixResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Acquire requests one fix in high-accuracy mode. Gateway responses map to
// the probe error taxonomy: 403 is a denied permission, 404 a device with
// no location capability, a context deadline a timeout, anything else
// unavailable.
func (p *GatewayProbe) Acquire(ctx context.Context) (Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/fix?accuracy=high", nil)
	if err != nil {
		return Fix{}, &Error{Code: CodeUnavailable, Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Fix{}, &Error{Code: CodeTimeout, Err: err}
		}
		return Fix{}, &Error{Code: CodeUnavailable, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusForbidden:
		return Fix{}, &Error{Code: CodePermissionDenied}
	case http.StatusNotFound:
		return Fix{}, &Error{Code: CodeUnsupported}
	case http.StatusGatewayTimeout:
		return Fix{}, &Error{Code: CodeTimeout}
	default:
		return Fix{}, &Error{Code: CodeUnavailable, Err: fmt.Errorf("gateway returned status %d", resp.StatusCode)}
	}

	var body fixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Fix{}, &Error{Code: CodeUnavailable, Err: fmt.Errorf("malformed gateway response: %w", err)}
	}

	return Fix{Latitude: body.Latitude, Longitude: body.Longitude}, nil
}
