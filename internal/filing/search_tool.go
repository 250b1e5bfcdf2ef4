package filing

import (
	"context"
	"encoding/json"
	"fmt"
)

const searchToolLimit = 5

// Searcher is satisfied by SearchClient.
type Searcher interface {
	Search(ctx context.Context, p SearchParams) (*SearchResult, error)
}

// SearchTool exposes filing search to the model.
type SearchTool struct {
	searcher Searcher
}

func NewSearchTool(searcher Searcher) *SearchTool {
	return &SearchTool{searcher: searcher}
}

func (t *SearchTool) Name() string { return "search_filings" }

func (t *SearchTool) Description() string {
	return "Search SEC filings by ticker, company name, form type and filing date range. Returns the most recent matches."
}

func (t *SearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "ticker": {"type": "string", "description": "Stock ticker, e.g. AAPL"},
    "companyName": {"type": "string"},
    "formType": {"type": "string", "description": "Form type, e.g. 10-K or 8-K"},
    "startDate": {"type": "string", "description": "YYYY-MM-DD"},
    "endDate": {"type": "string", "description": "YYYY-MM-DD"}
  }
}`)
}

type searchToolArgs struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"companyName"`
	FormType    string `json:"formType"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

type searchToolFiling struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"companyName"`
	FormType    string `json:"formType"`
	FiledAt     string `json:"filedAt"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type searchToolResult struct {
	Total   int                `json:"total"`
	Filings []searchToolFiling `json:"filings"`
}

func (t *SearchTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	var in searchToolArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("decode search_filings args failed: %w", err)
		}
	}

	res, err := t.searcher.Search(ctx, SearchParams{
		Ticker:      in.Ticker,
		CompanyName: in.CompanyName,
		FormType:    in.FormType,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		PageSize:    searchToolLimit,
	})
	if err != nil {
		return nil, err
	}

	out := searchToolResult{Total: res.Total.Value, Filings: make([]searchToolFiling, 0, len(res.Filings))}
	for i, f := range res.Filings {
		if i == searchToolLimit {
			break
		}
		out.Filings = append(out.Filings, searchToolFiling{
			Ticker:      f.Ticker,
			CompanyName: f.CompanyName,
			FormType:    f.FormType,
			FiledAt:     f.FiledAt,
			Description: f.Description,
			Link:        f.LinkToFilingDetails,
		})
	}
	return out, nil
}
