package serper

import (
	"context"

	"github.com/mohammad-safakhou/researcher/internal/search/client"
	"github.com/mohammad-safakhou/researcher/internal/search/models"
	"github.com/mohammad-safakhou/researcher/utils"
)

type Search struct {
	ApiKey string
	HTTP   *client.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": q, "num": k}
	httpc := s.HTTP
	if httpc == nil {
		httpc = client.New(0, 2, 0)
	}
	headers := map[string]string{"X-API-KEY": s.ApiKey}
	var raw map[string]any
	if err := httpc.DoJSON(ctx, "POST", "https://google.serper.dev/search", headers, payload, &raw); err != nil {
		return nil, err
	}

	var out []models.Result
	if items, ok := raw["organic"].([]any); ok {
		for i, it := range items {
			if i >= k {
				break
			}
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, models.Result{
				Title: utils.Str(m["title"]), URL: utils.Str(m["link"]), Snippet: utils.Str(m["snippet"]),
			})
		}
	}
	return out, nil
}
