package filing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

type SearchParams struct {
	Ticker           string
	CompanyName      string
	StartDate        string
	EndDate          string
	FormType         string
	ExcludeFormTypes []string
	Page             int
	PageSize         int
}

type Total struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

type Filing struct {
	ID                  string `json:"id"`
	Ticker              string `json:"ticker"`
	FormType            string `json:"formType"`
	AccessionNo         string `json:"accessionNo"`
	CIK                 string `json:"cik"`
	CompanyNameLong     string `json:"companyNameLong"`
	CompanyName         string `json:"companyName"`
	LinkToFilingDetails string `json:"linkToFilingDetails"`
	Description         string `json:"description"`
	LinkToTxt           string `json:"linkToTxt"`
	FiledAt             string `json:"filedAt"`
}

type SearchResult struct {
	Total   Total    `json:"total"`
	Filings []Filing `json:"filings"`
}

// BuildQuery joins the active filters with AND. With no filters every
// filing matches.
func BuildQuery(p SearchParams) string {
	var filters []string
	if v := strings.TrimSpace(p.Ticker); v != "" {
		filters = append(filters, fmt.Sprintf("ticker:(%s)", v))
	}
	if v := strings.TrimSpace(p.CompanyName); v != "" {
		filters = append(filters, fmt.Sprintf("companyName:(%s)", v))
	}
	if v := strings.TrimSpace(p.FormType); v != "" {
		filters = append(filters, fmt.Sprintf("formType:(%s)", v))
	}
	start, end := strings.TrimSpace(p.StartDate), strings.TrimSpace(p.EndDate)
	if start != "" && end != "" {
		filters = append(filters, fmt.Sprintf("filedAt:[%s TO %s]", start, end))
	}
	var excluded []string
	for _, ft := range p.ExcludeFormTypes {
		if ft = strings.TrimSpace(ft); ft != "" {
			excluded = append(excluded, ft)
		}
	}
	if len(excluded) > 0 {
		filters = append(filters, fmt.Sprintf("NOT formType:(%s)", strings.Join(excluded, ",")))
	}

	if len(filters) == 0 {
		return "formType:*"
	}
	return strings.Join(filters, " AND ")
}

type searchRequest struct {
	Query string           `json:"query"`
	From  int              `json:"from"`
	Size  int              `json:"size"`
	Sort  []map[string]any `json:"sort"`
}

// SearchClient queries the third-party full text filing search API.
type SearchClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewSearchClient(url, apiKey string, httpClient *http.Client) *SearchClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &SearchClient{url: url, apiKey: apiKey, httpClient: httpClient}
}

func (c *SearchClient) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	body, err := json.Marshal(searchRequest{
		Query: BuildQuery(p),
		From:  p.Page * p.PageSize,
		Size:  p.PageSize,
		Sort:  []map[string]any{{"filedAt": map[string]string{"order": "desc"}}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out SearchResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode search response failed: %w", err)
	}
	if out.Filings == nil {
		out.Filings = []Filing{}
	}
	return &out, nil
}
