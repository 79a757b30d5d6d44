package webhooks

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/notify"
)

// maxResponseDetail caps how much of a response body is echoed into the
// action details
const maxResponseDetail = 4096

// Firer invokes stored webhook definitions over HTTP. All transport knobs
// (method, headers, timeout, retries, redirect policy, TLS bypass) come
// from the webhook's own configuration.
type Firer struct{}

// NewFirer creates a webhook firer
func NewFirer() *Firer {
	return &Firer{}
}

// Fire runs the configured call, retrying as configured, and returns the
// action result triple. code "0" means a 2xx response.
func (f *Firer) Fire(ctx context.Context, hook *database.WebHook, dc *notify.Context) (string, string, string) {
	client := f.buildClient(hook)

	body := hook.Body
	if body == "" {
		raw, err := json.Marshal(dc)
		if err != nil {
			return notify.CodeWebHookFailed, fmt.Sprintf("failed to encode payload: %v", err), ""
		}
		body = string(raw)
	}

	method := strings.ToUpper(hook.Method)
	if method == "" {
		method = http.MethodPost
	}

	attempts := hook.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		code, description, details, err := f.fireOnce(ctx, client, hook, method, body)
		if err == nil {
			return code, description, details
		}
		lastErr = err
		log.Printf("WebHookFirer: attempt %d/%d for hook %s failed: %v", attempt, attempts, hook.HookID, err)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return notify.CodeWebHookFailed, fmt.Sprintf("webhook %s cancelled: %v", hook.HookID, ctx.Err()), ""
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return notify.CodeWebHookFailed, fmt.Sprintf("webhook %s failed after %d attempt(s): %v", hook.HookID, attempts, lastErr), ""
}

// fireOnce performs a single HTTP call. A non-2xx status is returned as a
// result, not an error, so it is not retried.
func (f *Firer) fireOnce(ctx context.Context, client *http.Client, hook *database.WebHook, method, body string) (string, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, hook.URL, bytes.NewReader([]byte(body)))
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hook.Headers {
		if s, ok := v.(string); ok {
			req.Header.Set(k, s)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", "", "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseDetail))
	details := ""
	if len(bytes.TrimSpace(respBody)) > 0 {
		details = fmt.Sprintf("```\n%s\n```", strings.TrimSpace(string(respBody)))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return notify.CodeOK, fmt.Sprintf("HTTP %d from %s", resp.StatusCode, hook.URL), details, nil
	}
	return notify.CodeWebHookFailed, fmt.Sprintf("HTTP %d from %s", resp.StatusCode, hook.URL), details, nil
}

// buildClient assembles an http.Client honoring the hook's transport
// configuration
func (f *Firer) buildClient(hook *database.WebHook) *http.Client {
	timeout := time.Duration(hook.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	if hook.InsecureTLS {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	if !hook.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}
