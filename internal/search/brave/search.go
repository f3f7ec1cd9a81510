package brave

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/researcher/internal/search/client"
	"github.com/mohammad-safakhou/researcher/internal/search/models"
	"github.com/mohammad-safakhou/researcher/utils"
)

type Search struct {
	ApiKey string
	HTTP   *client.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	url := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", utils.UrlQuery(q), k)
	httpc := s.HTTP
	if httpc == nil {
		httpc = client.New(0, 2, 0)
	}
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": s.ApiKey,
	}
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := httpc.DoJSON(ctx, "GET", url, headers, nil, &raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}
