package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/zaidmukaddam/scira/pkg/clients"
)

const DefaultDaytonaURL = "https://app.daytona.io/api"

var ErrNoSandbox = errors.New("sandbox provider is not configured")

// ExecResult is the outcome of one command inside a sandbox.
type ExecResult struct {
	ExitCode int    `json:"exitCode"`
	Result   string `json:"result"`
}

// SandboxProvider provisions and drives ephemeral compute sandboxes.
type SandboxProvider interface {
	Create(ctx context.Context) (string, error)
	// Exec runs a shell command. A zero timeout uses the provider default.
	Exec(ctx context.Context, id, command string, timeout time.Duration) (*ExecResult, error)
	Delete(ctx context.Context, id string) error
}

// DaytonaClient implements SandboxProvider over the Daytona REST API.
type DaytonaClient struct {
	APIKey   string
	BaseURL  string
	Language string
	HTTP     *http.Client
	Logger   *slog.Logger
}

func NewDaytonaClient(apiKey, baseURL string) *DaytonaClient {
	if baseURL == "" {
		baseURL = DefaultDaytonaURL
	}
	return &DaytonaClient{
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Language: "python",
		HTTP:     &http.Client{Timeout: 5 * time.Minute},
		Logger:   slog.Default(),
	}
}

func (d *DaytonaClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + d.APIKey}
}

func (d *DaytonaClient) Create(ctx context.Context) (string, error) {
	if d.APIKey == "" {
		return "", ErrNoSandbox
	}
	body := map[string]any{
		"labels": map[string]string{"code-toolkit-language": d.Language},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := clients.DoJSON(ctx, d.HTTP, http.MethodPost, d.BaseURL+"/sandbox", d.headers(), body, &resp); err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create sandbox: response has no id")
	}
	d.Logger.Info("Sandbox created", "sandbox_id", resp.ID)
	return resp.ID, nil
}

func (d *DaytonaClient) Exec(ctx context.Context, id, command string, timeout time.Duration) (*ExecResult, error) {
	body := map[string]any{"command": command}
	if timeout > 0 {
		body["timeout"] = int(timeout.Seconds())
	}
	endpoint := fmt.Sprintf("%s/toolbox/%s/toolbox/process/execute", d.BaseURL, url.PathEscape(id))

	var res ExecResult
	if err := clients.DoJSON(ctx, d.HTTP, http.MethodPost, endpoint, d.headers(), body, &res); err != nil {
		return nil, fmt.Errorf("exec in sandbox %s: %w", id, err)
	}
	return &res, nil
}

func (d *DaytonaClient) Delete(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/sandbox/%s?force=true", d.BaseURL, url.PathEscape(id))
	if err := clients.DoJSON(ctx, d.HTTP, http.MethodDelete, endpoint, d.headers(), nil, nil); err != nil {
		return fmt.Errorf("delete sandbox %s: %w", id, err)
	}
	d.Logger.Info("Sandbox deleted", "sandbox_id", id)
	return nil
}
