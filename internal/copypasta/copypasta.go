// Package copypasta fetches copypasta text for a search query from the
// reddit search API.
package copypasta

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://www.reddit.com"

// Client queries r/copypasta. BaseURL is overridable for tests.
type Client struct {
	BaseURL string
	Client  *http.Client
}

// NewClient builds a client with sane timeouts.
func NewClient() *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Selftext string `json:"selftext"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search returns the body of the most relevant copypasta for query.
func (c *Client) Search(query string) (string, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("restrict_sr", "1")
	q.Set("sort", "relevance")
	q.Set("limit", "10")

	req, err := http.NewRequest(http.MethodGet,
		base+"/r/copypasta/search.json?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	// Reddit rejects the default Go user agent.
	req.Header.Set("User-Agent", "muhbot (irc bot)")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("copypasta search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("copypasta search failed: status %d", resp.StatusCode)
	}

	var res searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	for _, child := range res.Data.Children {
		if child.Data.Selftext != "" {
			return child.Data.Selftext, nil
		}
	}
	return "", fmt.Errorf("no copypasta found for %q", query)
}
