package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/rs/zerolog"
)

// maxErrorBody bounds how much of an error response is kept for messages
const maxErrorBody = 512

// HTTPClient queries a Modrinth-style v2 API.
type HTTPClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    zerolog.Logger
}

// HTTPOption configures an HTTPClient
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.http = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTPClient) {
		h.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout of the default client
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		h.http.Timeout = d
	}
}

// NewHTTPClient creates a client rooted at baseURL, e.g. https://api.modrinth.com/v2
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logging.GetLogger("registry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProject implements Client.
func (c *HTTPClient) GetProject(ctx context.Context, idOrSlug string) (*types.Project, error) {
	endpoint := fmt.Sprintf("%s/project/%s", c.baseURL, url.PathEscape(idOrSlug))

	var project types.Project
	if err := c.getJSON(ctx, endpoint, idOrSlug, &project); err != nil {
		return nil, err
	}
	if project.ID == "" {
		return nil, errors.Newf(errors.ErrRegistry, "registry returned project %q without id", idOrSlug)
	}
	return &project, nil
}

// GetProjectVersions implements Client.
func (c *HTTPClient) GetProjectVersions(ctx context.Context, projectID string, platform types.Platform) ([]types.ProjectVersion, error) {
	query := url.Values{}
	if platform.GameVersion != "" {
		query.Set("game_versions", jsonList(platform.GameVersion))
	}
	if platform.Loader != "" {
		query.Set("loaders", jsonList(platform.Loader))
	}

	endpoint := fmt.Sprintf("%s/project/%s/version", c.baseURL, url.PathEscape(projectID))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var versions []types.ProjectVersion
	if err := c.getJSON(ctx, endpoint, projectID, &versions); err != nil {
		return nil, err
	}
	for i := range versions {
		if versions[i].ProjectID == "" {
			versions[i].ProjectID = projectID
		}
	}
	return versions, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint, project string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrRegistry, "failed to build request for %s", project)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug().Str("url", endpoint).Msg("Registry request")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.ErrRegistry, "request for %s failed", project).
			WithDetail("project", project)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return errors.Newf(errors.ErrProjectNotFound, "project %q not found", project).
			WithDetail("project", project)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Newf(errors.ErrRegistry, "registry answered %d for %s: %s",
			resp.StatusCode, project, strings.TrimSpace(string(body))).
			WithDetail("project", project).
			WithDetail("status", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, errors.ErrRegistry, "failed to decode registry response for %s", project)
	}
	return nil
}

// jsonList renders the single-element JSON array the API expects in query
// parameters, e.g. ["1.20.1"].
func jsonList(v string) string {
	b, _ := json.Marshal([]string{v})
	return string(b)
}
