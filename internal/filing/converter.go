package filing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrNoFileURL = errors.New("converter did not return a file URL")

// UpstreamError is a non-success answer from an external filing service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// ViewRequest is the reference to a filing forwarded to the converter.
type ViewRequest struct {
	FilingID    string `json:"filingId"`
	FilingURL   string `json:"filingUrl"`
	AccessionNo string `json:"accessionNo"`
	CompanyName string `json:"companyName"`
	FiledAt     string `json:"filedAt"`
	FormType    string `json:"formType"`
	Ticker      string `json:"ticker"`
}

type viewResponse struct {
	FileURL string `json:"fileURL"`
}

// ConverterClient calls the external service that turns a filing URL into a
// downloadable file. Requests have no client side timeout; only the caller's
// context bounds them.
type ConverterClient struct {
	url        string
	httpClient *http.Client
}

func NewConverterClient(url string, httpClient *http.Client) *ConverterClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ConverterClient{url: url, httpClient: httpClient}
}

func (c *ConverterClient) Convert(ctx context.Context, in ViewRequest) (string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("marshal converter request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build converter request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("converter request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read converter response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out viewResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode converter response failed: %w", err)
	}
	if strings.TrimSpace(out.FileURL) == "" {
		return "", ErrNoFileURL
	}
	return out.FileURL, nil
}
