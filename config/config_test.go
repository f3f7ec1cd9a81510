package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Search.Provider != "tavily" {
		t.Fatalf("default search provider: got %q", cfg.Search.Provider)
	}
	if cfg.Report.QueriesPerSection != 3 {
		t.Fatalf("default queries per section: got %d", cfg.Report.QueriesPerSection)
	}
	if cfg.Report.MaxResultsPerQuery != 5 {
		t.Fatalf("default max results per query: got %d", cfg.Report.MaxResultsPerQuery)
	}
	if cfg.LLM.Routing.Planning != "gpt-4o" {
		t.Fatalf("default planning model: got %q", cfg.LLM.Routing.Planning)
	}
	if _, ok := cfg.LLM.Providers["openai"]; !ok {
		t.Fatalf("expected default openai provider, got %v", cfg.LLM.Providers)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("default server address: got %q", cfg.Server.Address)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TAVILY_API_KEY", "tvly-test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LLM.Providers["openai"].APIKey != "sk-test" {
		t.Fatalf("OPENAI_API_KEY not applied: %+v", cfg.LLM.Providers["openai"])
	}
	if cfg.Search.TavilyAPIKey != "tvly-test" {
		t.Fatalf("TAVILY_API_KEY not applied: %q", cfg.Search.TavilyAPIKey)
	}
	if cfg.SearchAPIKey() != "tvly-test" {
		t.Fatalf("SearchAPIKey: got %q", cfg.SearchAPIKey())
	}
}
