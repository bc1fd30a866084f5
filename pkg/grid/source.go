package grid

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxFetchBytes bounds network reads of grid files.
const maxFetchBytes = 512 << 20

// ByteSource reads a grid file to completion.
type ByteSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FileSource reads a grid file from disk.
type FileSource string

// Fetch implements ByteSource.
func (f FileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", string(f), err)
	}
	return data, nil
}

func (f FileSource) String() string { return string(f) }

// HTTPSource downloads a grid file.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Fetch implements ByteSource.
func (h HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", h.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", h.URL, err)
	}
	return data, nil
}

func (h HTTPSource) String() string { return h.URL }

// SourceFor picks an HTTPSource for http(s) URLs and a FileSource otherwise.
// An empty location yields nil.
func SourceFor(location string, client *http.Client) ByteSource {
	switch {
	case location == "":
		return nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return HTTPSource{URL: location, Client: client}
	default:
		return FileSource(location)
	}
}
