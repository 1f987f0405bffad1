package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// githubFetcher fetches one file's raw content from GitHub via the
// raw.githubusercontent.com mirror, avoiding the authenticated contents
// API for the common public-repo case.
type githubFetcher struct {
	client HTTPClient
}

// NewGitHubFetcher returns a RepoFetcher backed by client.
func NewGitHubFetcher(client HTTPClient) RepoFetcher {
	return &githubFetcher{client: client}
}

func (f *githubFetcher) FetchFile(ctx context.Context, owner, repo, ref, path string) (string, string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	url := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, ref, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	return string(body), url, nil
}

// gistFetcher resolves a gist id's files via the GitHub gists API.
type gistFetcher struct {
	client HTTPClient
}

// NewGistFetcher returns a GistFetcher backed by client.
func NewGistFetcher(client HTTPClient) GistFetcher {
	return &gistFetcher{client: client}
}

type gistResponse struct {
	Files map[string]struct {
		Content string `json:"content"`
	} `json:"files"`
}

func (f *gistFetcher) FetchGist(ctx context.Context, gistID string) (map[string]string, error) {
	url := fmt.Sprintf("https://api.github.com/gists/%s", gistID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch gist %s: status %d", gistID, resp.StatusCode)
	}

	var parsed gistResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse gist %s response: %w", gistID, err)
	}

	files := make(map[string]string, len(parsed.Files))
	for name, f := range parsed.Files {
		files[name] = f.Content
	}
	return files, nil
}
