package tavily

import (
	"context"

	"github.com/mohammad-safakhou/researcher/internal/search/client"
	"github.com/mohammad-safakhou/researcher/internal/search/models"
)

type Search struct {
	ApiKey string
	HTTP   *client.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://docs.tavily.com/docs/rest-api
	payload := map[string]any{
		"api_key":     s.ApiKey,
		"query":       q,
		"max_results": k,
	}
	httpc := s.HTTP
	if httpc == nil {
		httpc = client.New(0, 2, 0)
	}
	var raw struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := httpc.DoJSON(ctx, "POST", "https://api.tavily.com/search", nil, payload, &raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return out, nil
}
