// Package clients holds HTTP clients for external services.
package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buildtrack/patchhub/common/config"
	"github.com/buildtrack/patchhub/common/logger"
)

// JobClient manages CI jobs. Methods return the HTTP status code of the
// CI server's response: 200 success, 404 job not found, anything else a
// server-side failure.
type JobClient interface {
	CreateJob(ctx context.Context, name, definition string) (int, error)
	DeleteJob(ctx context.Context, name string) (int, error)
	RunJob(ctx context.Context, name string) (int, error)
}

// JenkinsClient talks to a Jenkins server over its REST endpoints
type JenkinsClient struct {
	base  *url.URL
	user  string
	token string
	httpc *http.Client
	log   *logger.Logger
}

// NewJenkinsClient creates a client for the configured Jenkins server
func NewJenkinsClient(cfg config.JenkinsConfig, log *logger.Logger) (*JenkinsClient, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse jenkins URL: %w", err)
	}

	return &JenkinsClient{
		base:  base,
		user:  cfg.User,
		token: cfg.Token,
		httpc: &http.Client{Timeout: 30 * time.Second},
		log:   log,
	}, nil
}

// CreateJob creates a job from an XML definition
func (c *JenkinsClient) CreateJob(ctx context.Context, name, definition string) (int, error) {
	endpoint := c.base.JoinPath("createItem")
	endpoint.RawQuery = url.Values{"name": {name}}.Encode()

	return c.do(ctx, endpoint, strings.NewReader(definition), "text/xml")
}

// DeleteJob removes a job
func (c *JenkinsClient) DeleteJob(ctx context.Context, name string) (int, error) {
	return c.do(ctx, c.base.JoinPath("job", name, "doDelete"), nil, "")
}

// RunJob queues a build of the named job
func (c *JenkinsClient) RunJob(ctx context.Context, name string) (int, error) {
	return c.do(ctx, c.base.JoinPath("job", name, "build"), nil, "")
}

func (c *JenkinsClient) do(ctx context.Context, endpoint *url.URL, body io.Reader, contentType string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return 0, fmt.Errorf("build jenkins request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("jenkins request %s: %w", endpoint.Path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.log.Debug("jenkins call", "path", endpoint.Path, "status", resp.StatusCode)
	return resp.StatusCode, nil
}
