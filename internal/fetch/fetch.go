// Package fetch downloads registered spec documents from their
// upstream URLs and probes discovery endpoints for specs that are not
// registered yet.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"specsync/internal/config"
	"specsync/internal/logging"
	"specsync/internal/spec"
	"specsync/internal/version"
)

const (
	fetchTimeout = 30 * time.Second
	probeTimeout = 5 * time.Second
)

// ErrSkipped marks a spec that could not be fetched but should not
// abort the run: upstream 404, missing API key, or an invalid payload.
var ErrSkipped = errors.New("spec skipped")

// Summary describes one fetched document for reporting.
type Summary struct {
	Flavor  spec.Flavor
	Title   string
	Version string

	// REST flavor counts.
	Endpoints int
	Schemas   int

	// WebSocket flavor counts.
	ClientMessages int
	ServerMessages int
	ConfigTypes    int
	Enums          int
}

// Discovery is a probe hit: a candidate spec responding at a
// discovery URL without being registered.
type Discovery struct {
	Name string
	URL  string
}

// Fetcher downloads spec documents.
type Fetcher struct {
	client *http.Client
	probe  *http.Client
	logger *logging.Logger
	apiKey string
}

// NewFetcher creates a fetcher. apiKey may be empty; specs marked
// requires_auth are then skipped.
func NewFetcher(logger *logging.Logger, apiKey string) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		probe:  &http.Client{Timeout: probeTimeout},
		logger: logger,
		apiKey: apiKey,
	}
}

// ResolveAPIKey returns the first non-empty key found in the
// configured auth env vars, global ones first, then per-spec.
func ResolveAPIKey(cfg *config.Specs) string {
	for _, envVar := range cfg.AuthEnvVars {
		if key := os.Getenv(envVar); key != "" {
			return key
		}
	}
	for _, name := range cfg.SpecNames() {
		for _, envVar := range cfg.Specs[name].AuthEnvVars {
			if key := os.Getenv(envVar); key != "" {
				return key
			}
		}
	}
	return ""
}

// Fetch downloads one registered spec, validates it, and returns the
// pretty-printed body with a summary. Wrap errors with ErrSkipped
// semantics: upstream 404, missing key, and invalid payloads come back
// wrapping ErrSkipped so the caller can continue with other specs.
func (f *Fetcher) Fetch(ctx context.Context, name string, sc config.SpecConfig) ([]byte, *Summary, error) {
	url := sc.URL
	if sc.RequiresAuth {
		if f.apiKey == "" {
			return nil, nil, fmt.Errorf("%w: %s requires an API key and none is set", ErrSkipped, name)
		}
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url = url + sep + "key=" + f.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building request for %s: %w", name, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil, fmt.Errorf("%w: %s returned 404", ErrSkipped, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetching %s: HTTP %d", name, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s response: %w", name, err)
	}

	doc, err := spec.Parse(raw, name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s payload invalid: %v", ErrSkipped, name, err)
	}

	body, err := prettyJSON(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("formatting %s payload: %w", name, err)
	}

	f.logger.Debug("Spec fetched", map[string]interface{}{
		"spec":  name,
		"bytes": len(body),
	})

	return body, summarize(raw, doc), nil
}

// SaveLatest writes a fetched body to outputDir/latest-<name>.json.
func SaveLatest(outputDir, name string, body []byte) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outputDir, "latest-"+name+".json")
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Discover probes the configured URL patterns for candidate names not
// already registered. Probe failures are silent; only positive hits
// are reported.
func (f *Fetcher) Discover(ctx context.Context, cfg *config.Specs) []Discovery {
	var hits []Discovery
	for _, pattern := range cfg.DiscoveryPatterns {
		for _, name := range cfg.DiscoveryNames {
			if _, registered := cfg.Specs[name]; registered {
				continue
			}

			url := strings.ReplaceAll(pattern, "{name}", name)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				continue
			}
			req.Header.Set("User-Agent", version.UserAgent())

			resp, err := f.probe.Do(req)
			if err != nil {
				continue
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				hits = append(hits, Discovery{Name: name, URL: url})
			}
		}
	}
	return hits
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func summarize(raw []byte, doc spec.Document) *Summary {
	sum := &Summary{Flavor: doc.Flavor()}

	switch doc.Flavor() {
	case spec.FlavorREST:
		sum.Endpoints = len(doc.Endpoints())
		sum.Schemas = len(doc.Schemas())
	case spec.FlavorWebSocket:
		for name := range doc.Endpoints() {
			if strings.HasPrefix(name, "client.") {
				sum.ClientMessages++
			} else {
				sum.ServerMessages++
			}
		}
		sum.ConfigTypes = len(doc.Schemas())
	}
	sum.Enums = len(doc.Enums())

	var meta struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
	}
	if err := json.Unmarshal(raw, &meta); err == nil {
		sum.Title = meta.Info.Title
		sum.Version = meta.Info.Version
	}

	return sum
}
