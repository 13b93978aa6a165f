// Package logoclient talks to the Logo REST service: it acquires the ERP
// bearer token and posts demand documents.
package logoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ropbridge/ropbridge/internal/server/models"
)

// Config carries the Logo REST connection settings. APIKey is the prebuilt
// Authorization header value for the token endpoint (usually "Basic ...").
type Config struct {
	BaseURL  string
	Username string
	Password string
	FirmNo   string
	APIKey   string
	Timeout  time.Duration
}

// Client is safe for concurrent use. The ERP bearer token is cached and
// refreshed 60 seconds before its reported expiry.
type Client struct {
	httpClient *http.Client
	cfg        Config
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

const tokenRefreshMargin = 60 * time.Second

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
}

// bearerToken returns a cached ERP token or acquires a fresh one with the
// password grant the Logo REST service expects.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.Username)
	form.Set("firmno", c.cfg.FirmNo)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("token"),
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting erp token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("erp token request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding erp token response: %w", err)
	}

	c.token = tr.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenRefreshMargin)

	return c.token, nil
}

// PostDemandDocument sends one consolidated demand document to the ERP.
func (c *Client) PostDemandDocument(ctx context.Context, doc *models.DemandDocument) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding demand document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("demandSlips"),
		bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building demand request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting demand document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("erp rejected demand document %s: %s: %s",
			doc.FicheNo, resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}
