package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/researcher/internal/search/brave"
	"github.com/mohammad-safakhou/researcher/internal/search/client"
	"github.com/mohammad-safakhou/researcher/internal/search/models"
	"github.com/mohammad-safakhou/researcher/internal/search/serper"
	"github.com/mohammad-safakhou/researcher/internal/search/tavily"
)

// WebSearcher retrieves up to k results for a query.
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// Options tunes the HTTP behaviour of the provider clients.
type Options struct {
	Timeout time.Duration
	Retries int
}

func NewWebSearcher(provider Provider, apiKey string, opts Options) (WebSearcher, error) {
	httpc := client.New(opts.Timeout, opts.Retries, 0)
	switch provider {
	case TavilyProvider:
		return tavily.Search{ApiKey: apiKey, HTTP: httpc}, nil
	case SerperProvider:
		return serper.Search{ApiKey: apiKey, HTTP: httpc}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey, HTTP: httpc}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// QueryResults pairs a query with the results it returned.
type QueryResults struct {
	Query   string
	Results []models.Result
}

// BuildCorpus merges per-query results into one labeled text corpus.
// A URL seen under an earlier query is skipped under later ones, so a
// source contributes at most once. An empty corpus is a valid outcome.
func BuildCorpus(batches []QueryResults) string {
	seen := make(map[string]bool)
	var b strings.Builder
	for _, batch := range batches {
		var kept []models.Result
		for _, r := range batch.Results {
			if r.URL != "" && seen[r.URL] {
				continue
			}
			if r.URL != "" {
				seen[r.URL] = true
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			continue
		}
		fmt.Fprintf(&b, "Query: %s\n", batch.Query)
		for _, r := range kept {
			fmt.Fprintf(&b, "- %s (%s)\n  %s\n", r.Title, r.URL, r.Snippet)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
