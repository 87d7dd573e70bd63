package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// SeedFile is the JSON document accepted by the seed command.
type SeedFile struct {
	Users  []SeedUser  `json:"users"`
	Events []SeedEvent `json:"events"`
}

type SeedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SeedEvent struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
}

// SeedFetcher loads a seed document from a file or an HTTP endpoint.
type SeedFetcher interface {
	Fetch(ctx context.Context, location string) (*SeedFile, error)
}

type seedFetcher struct {
	client *http.Client
}

// NewSeedFetcher returns a fetcher that reads http(s) URLs with client and everything
// else from the local filesystem.
func NewSeedFetcher(client *http.Client) SeedFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &seedFetcher{client: client}
}

func (f *seedFetcher) Fetch(ctx context.Context, location string) (*SeedFile, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return f.fetchHTTP(ctx, location)
	}
	file, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()

	var data SeedFile
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &data, nil
}

func (f *seedFetcher) fetchHTTP(ctx context.Context, url string) (*SeedFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed source returned status: %d", resp.StatusCode)
	}

	var data SeedFile
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode seed response: %w", err)
	}
	return &data, nil
}
