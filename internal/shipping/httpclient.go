package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPClient asks a carrier rate endpoint for quotes. It POSTs the RateReq as JSON to
// BaseURL + "/rates" and expects {"rates": [...]} back. Retries and circuit breaking
// are left to CarrierQuote.
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewHTTPClient returns a client whose transport is traced with otelhttp.
func NewHTTPClient(baseURL string) HTTPClient {
	return HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

type ratesResponse struct {
	Rates []Rate `json:"rates"`
}

// Rates implements Client.
func (c HTTPClient) Rates(ctx context.Context, r RateReq) ([]Rate, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rates", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("carrier responded %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	var out ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode carrier rates: %w", err)
	}
	return out.Rates, nil
}
