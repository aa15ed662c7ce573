// Package verify talks to bot verification services.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const TurnstileURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type result struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

func defaultClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// Turnstile checks tokens against Cloudflare's siteverify API.
type Turnstile struct {
	secret string
	url    string
	client *http.Client
}

func NewTurnstile(secret string) *Turnstile {
	return &Turnstile{secret: secret, url: TurnstileURL, client: defaultClient()}
}

// Configured reports whether a secret is set. Without one every token passes.
func (t *Turnstile) Configured() bool {
	return t.secret != ""
}

func (t *Turnstile) Verify(ctx context.Context, token string) (bool, error) {
	if !t.Configured() {
		return true, nil
	}
	if token == "" {
		return false, nil
	}

	form := url.Values{
		"secret":   {t.secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")

	res, err := do(t.client, req)
	if err != nil {
		return false, err
	}
	return res.Success, nil
}

// Endpoint posts {"token": ...} to an HTTP endpoint answering {"success": bool}.
type Endpoint struct {
	url    string
	client *http.Client
}

func NewEndpoint(url string) *Endpoint {
	return &Endpoint{url: url, client: defaultClient()}
}

func (e *Endpoint) Verify(ctx context.Context, token string) (bool, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, strings.NewReader(string(body)))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	res, err := do(e.client, req)
	if err != nil {
		return false, err
	}
	return res.Success, nil
}

func do(client *http.Client, req *http.Request) (result, error) {
	resp, err := client.Do(req)
	if err != nil {
		return result{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return result{}, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return result{}, fmt.Errorf("verification failed with status %d", resp.StatusCode)
	}

	var res result
	if err := json.Unmarshal(body, &res); err != nil {
		return result{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return res, nil
}
