package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"multiswap/pkg/types"
)

// Aggregator quotes a swap and builds the unsigned transaction for it.
// amount is always expressed in base units of the input token.
type Aggregator interface {
	Name() string
	Quote(ctx context.Context, inputToken, outputToken, amount string) (*types.QuoteRecord, error)
	BuildSwap(ctx context.Context, quote *types.QuoteRecord, wallet string) (*types.BuildRecord, error)
}

// DefaultTimeout bounds every upstream aggregator call
const DefaultTimeout = 30 * time.Second

// upstreamError is the error envelope both Jupiter and Uniswap return
type upstreamError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
	Detail    string `json:"detail"`
}

func newHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// doJSON performs one request and returns the raw response body.
// Non-2xx responses and bodies carrying an "error" field become ErrAggregator
// with the upstream body included verbatim.
func doJSON(ctx context.Context, client *http.Client, method, url string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrAggregator, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrAggregator, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", types.ErrAggregator, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrAggregator, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var envelope upstreamError
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		return nil, fmt.Errorf("%w: %s", types.ErrAggregator, bytes.TrimSpace(raw))
	}

	return raw, nil
}
