package builtin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"persona/internal/capability"
)

// WikipediaSearch queries the MediaWiki search API and returns the
// summary of the best match.
type WikipediaSearch struct {
	capability.Base
	// apiURL uses %s for the language code.
	apiURL string
	client *http.Client
}

func NewWikipediaSearch() *WikipediaSearch {
	return &WikipediaSearch{
		Base: capability.NewBase(
			"search_wikipedia",
			"Searches Wikipedia and returns a short summary. Args: query (string), language (optional, default 'en'), results (optional count).",
		),
		apiURL: "https://%s.wikipedia.org/w/api.php",
		client: httpClient,
	}
}

func (s *WikipediaSearch) Execute(args map[string]any) capability.Result {
	if errRes := capability.RequireArgs(args, "query"); errRes != nil {
		return errRes
	}
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return capability.Errorf("argument 'query' must be a non-empty string")
	}

	language := "en"
	if v, ok := args["language"].(string); ok && v != "" {
		language = v
	}
	count := 3
	if v, ok := args["results"].(float64); ok && v > 0 {
		count = int(v)
	}

	titles, err := s.search(language, query, count)
	if err != nil {
		return capability.Errorf("wikipedia search failed: %v", err)
	}
	if len(titles) == 0 {
		return capability.Result{
			"results": []string{},
			"summary": fmt.Sprintf("No results found for '%s'", query),
			"status":  "no_results",
		}
	}

	summary, err := s.summary(language, titles[0])
	if err != nil {
		return capability.Errorf("wikipedia summary failed: %v", err)
	}

	return capability.Result{
		"results": titles,
		"title":   titles[0],
		"summary": summary,
		"status":  "success",
	}
}

func (s *WikipediaSearch) search(language, query string, count int) ([]string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("srsearch", query)
	q.Set("srlimit", fmt.Sprint(count))
	q.Set("format", "json")
	body, err := s.getJSON(fmt.Sprintf(s.apiURL, language) + "?" + q.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("bad search response: %w", err)
	}
	titles := make([]string, 0, len(payload.Query.Search))
	for _, hit := range payload.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

func (s *WikipediaSearch) summary(language, title string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("prop", "extracts")
	q.Set("exintro", "1")
	q.Set("explaintext", "1")
	q.Set("exsentences", "3")
	q.Set("titles", title)
	q.Set("format", "json")
	body, err := s.getJSON(fmt.Sprintf(s.apiURL, language) + "?" + q.Encode())
	if err != nil {
		return "", err
	}

	var payload struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("bad extract response: %w", err)
	}
	for _, page := range payload.Query.Pages {
		if page.Extract != "" {
			return page.Extract, nil
		}
	}
	return "", fmt.Errorf("no extract for '%s'", title)
}

func (s *WikipediaSearch) getJSON(u string) ([]byte, error) {
	resp, err := s.client.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
