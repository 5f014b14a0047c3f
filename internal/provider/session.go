package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrTransient wraps failures worth retrying (network errors, 5xx).
var ErrTransient = errors.New("transient provider error")

// ErrNotFound marks an empty provider result (soft failure for callers).
var ErrNotFound = errors.New("provider returned no data")

// Session owns the provider base URL, the shared http client and the
// access token. It is constructed once in main and injected; the token is
// fetched lazily and reused until the provider rejects it.
type Session struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	retry      RetryPolicy

	mu    sync.Mutex
	token string
}

func NewSession(baseURL, email, password string) *Session {
	return &Session{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		email:    email,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: RetryPolicy{MaxAttempts: 3, BaseBackoff: 500 * time.Millisecond},
	}
}

// Token returns the cached access token, logging in when none is held.
// Login is a token-refresh-class call and retries with bounded backoff.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	var token string
	err := s.retry.Do(ctx, func() error {
		body, err := json.Marshal(map[string]string{"email": s.email, "password": s.password})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/Auth/Login", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: login status %d", ErrTransient, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return fmt.Errorf("login failed: status=%d body=%s", resp.StatusCode, string(payload))
		}

		var parsed struct {
			Data struct {
				AccessToken string `json:"accessToken"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode login response: %w", err)
		}
		if parsed.Data.AccessToken == "" {
			return errors.New("login response carried no token")
		}
		token = parsed.Data.AccessToken
		return nil
	})
	if err != nil {
		return "", err
	}
	s.token = token
	return token, nil
}

// Invalidate drops the cached token so the next call logs in again.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// getJSON performs an authenticated GET and decodes the `data` envelope
// into out. A 401 invalidates the token and retries once with a fresh one.
func (s *Session) getJSON(ctx context.Context, path string, out any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := s.Token(ctx)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		status, err := s.doDecode(req, out)
		if status == http.StatusUnauthorized && attempt == 0 {
			log.Warn().Str("path", path).Msg("provider token rejected, refreshing")
			s.Invalidate()
			continue
		}
		return err
	}
	return errors.New("provider rejected refreshed token")
}

// postJSON mirrors getJSON for POST bodies.
func (s *Session) postJSON(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < 2; attempt++ {
		token, err := s.Token(ctx)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		status, err := s.doDecode(req, out)
		if status == http.StatusUnauthorized && attempt == 0 {
			s.Invalidate()
			continue
		}
		return err
	}
	return errors.New("provider rejected refreshed token")
}

func (s *Session) doDecode(req *http.Request, out any) (int, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, fmt.Errorf("%w: status %d on %s", ErrTransient, resp.StatusCode, req.URL.Path)
	}
	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return resp.StatusCode, fmt.Errorf("provider error: status=%d body=%s", resp.StatusCode, string(payload))
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode provider response: %w", err)
	}
	return resp.StatusCode, nil
}
