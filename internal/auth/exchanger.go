// Package auth keeps the locally signed-in GitHub identity.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pbaille/echoes/internal/domain"
)

const defaultExchangeError = "failed to exchange code for token"

// Exchanger trades an OAuth authorization code for a user identity through
// the companion backend.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (domain.Identity, error)
	Logout(ctx context.Context) error
}

// HTTPExchanger calls the backend's /api/auth endpoints.
type HTTPExchanger struct {
	baseURL string
	http    *http.Client
}

func NewHTTPExchanger(baseURL string, hc *http.Client) *HTTPExchanger {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPExchanger{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (x *HTTPExchanger) Exchange(ctx context.Context, code string) (domain.Identity, error) {
	endpoint := x.baseURL + "/api/auth/callback?code=" + url.QueryEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := x.http.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("exchange code: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = defaultExchangeError
		}
		return domain.Identity{}, errors.New(apiErr.Error)
	}

	var user domain.Identity
	if err := json.Unmarshal(body, &user); err != nil {
		return domain.Identity{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return user, nil
}

func (x *HTTPExchanger) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := x.http.Do(req)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logout: status %d", resp.StatusCode)
	}
	return nil
}
