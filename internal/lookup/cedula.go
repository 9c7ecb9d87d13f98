package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ciepi/portal-service/internal/config"
)

// Person is the national registry record for a cedula.
type Person struct {
	Cedula    string `json:"cedula"`
	FirstName string `json:"nombres"`
	LastName  string `json:"apellidos"`
}

// CedulaClient queries the national registry API. A zero BaseURL disables
// lookups; callers fall back to submitted names.
type CedulaClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewCedulaClient constructs the client.
func NewCedulaClient(cfg config.LookupConfig) *CedulaClient {
	return &CedulaClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout()},
	}
}

// Enabled reports whether a registry endpoint is configured.
func (c *CedulaClient) Enabled() bool {
	return c.baseURL != ""
}

// Find resolves a cedula to the registered person.
func (c *CedulaClient) Find(ctx context.Context, cedula string) (*Person, error) {
	endpoint := fmt.Sprintf("%s/cedula/%s", c.baseURL, url.PathEscape(cedula))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("cedula %s not found in registry", cedula)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry lookup returned status %d", resp.StatusCode)
	}

	var person Person
	if err := json.NewDecoder(resp.Body).Decode(&person); err != nil {
		return nil, err
	}
	return &person, nil
}
