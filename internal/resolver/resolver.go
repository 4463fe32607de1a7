// Package resolver fetches parameter-type definitions for a station from the station API
// and maps raw reading keys to parameter-type identifiers.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrLookupFailed wraps every failure to obtain definitions from the station API.
var ErrLookupFailed = errors.New("parameter type lookup failed")

// ParameterType is a parameter-type definition as returned by the station API.
// ReadingKey is the first key of the definition's "json" object, which names the
// field carrying this parameter inside a station's readings.
type ParameterType struct {
	ID         int64
	ReadingKey string
}

type parameterTypePayload struct {
	ID   int64           `json:"id_tipo_parametro"`
	JSON json.RawMessage `json:"json"`
}

// UnmarshalJSON decodes a definition, keeping the first "json" key in document order.
func (p *ParameterType) UnmarshalJSON(data []byte) error {
	var payload parameterTypePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	key, err := firstObjectKey(payload.JSON)
	if err != nil {
		return fmt.Errorf("invalid json field for parameter type %d: %w", payload.ID, err)
	}
	p.ID = payload.ID
	p.ReadingKey = key
	return nil
}

// firstObjectKey returns the first key of a JSON object, or "" for null, empty or non-object values.
func firstObjectKey(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", nil
	}
	if !dec.More() {
		return "", nil
	}
	tok, err = dec.Token()
	if err != nil {
		return "", err
	}
	key, _ := tok.(string)
	return key, nil
}

// Client calls the station API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a station API client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchParameterTypes retrieves the ordered parameter-type definitions for a station.
// Any network error, non-2xx status or undecodable body is returned wrapped in ErrLookupFailed.
func (c *Client) FetchParameterTypes(ctx context.Context, stationID string) ([]ParameterType, error) {
	endpoint := fmt.Sprintf("%s/stations/%s/tipo-parametros", c.baseURL, url.PathEscape(stationID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Network error calling station API",
			"station_id", stationID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: request failed: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Station API returned error status",
			"station_id", stationID,
			"status_code", resp.StatusCode,
		)
		return nil, fmt.Errorf("%w: unexpected status %s", ErrLookupFailed, resp.Status)
	}

	var types []ParameterType
	if err := json.NewDecoder(resp.Body).Decode(&types); err != nil {
		slog.Error("Failed to decode station API response",
			"station_id", stationID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: decode payload: %v", ErrLookupFailed, err)
	}

	slog.Debug("Fetched parameter types",
		"station_id", stationID,
		"count", len(types),
	)

	return types, nil
}

// BuildKeyMap maps reading keys to parameter-type IDs. Definitions without a reading key
// are ignored; when two definitions share a key the later one wins.
func BuildKeyMap(types []ParameterType) map[string]int64 {
	keyMap := make(map[string]int64, len(types))
	for _, t := range types {
		if t.ReadingKey == "" {
			continue
		}
		keyMap[t.ReadingKey] = t.ID
	}
	return keyMap
}
