// Package api реализует HTTP клиент отправки журнала и очереди на сервер.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/milkledger/pkg/api"
)

var (
	// ErrNetwork indicates that server is unreachable or temporarily failing (timeout, 5xx, 429).
	// Items should be retried later without spending a retry.
	ErrNetwork = errors.New("remote unavailable")

	// ErrUnauthorized indicates that server refused device token
	ErrUnauthorized = errors.New("device token rejected")

	// ErrRejected indicates that server refused the request itself (4xx)
	ErrRejected = errors.New("request rejected by server")
)

const (
	// DefaultTimeout таймаут одного запроса по умолчанию
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes ограничение читаемого тела ответа
	maxResponseBytes = 4 << 20
)

// TokenSource выдает bearer токен устройства
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient подменяет http.Client (тесты, прокси)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout задает таймаут одного запроса
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent задает заголовок User-Agent
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Client отправляет пакеты журнала и записей на сервер
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	baseURL    string
	userAgent  string
}

// NewClient создает клиент сервера baseURL. tokens может быть nil,
// тогда запросы уходят без заголовка Authorization.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PushAuditLogs отправляет пакет записей журнала
func (c *Client) PushAuditLogs(ctx context.Context, req api.PushAuditRequest) (*api.PushResponse, error) {
	resp, err := post[api.PushResponse](ctx, c, "/api/v1/audit-logs", req)
	if err != nil {
		return nil, fmt.Errorf("push audit logs failed: %w", err)
	}
	return resp, nil
}

// PushRecords отправляет пакет записей сущностей
func (c *Client) PushRecords(ctx context.Context, req api.PushRecordsRequest) (*api.PushResponse, error) {
	resp, err := post[api.PushResponse](ctx, c, "/api/v1/records", req)
	if err != nil {
		return nil, fmt.Errorf("push records failed: %w", err)
	}
	return resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if _, err := c.do(req); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func post[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		// Обрезанный или чужой ответ: пакет мог не дойти, повторяем позже
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrNetwork, err)
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain device token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do выполняет запрос и возвращает тело успешного ответа
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Таймаут, отмена контекста, отказ соединения
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, raw)
	}
	return raw, nil
}

// statusError сопоставляет код ответа с классом ошибки
func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		msg = errResp.Error
		if errResp.Message != "" {
			msg += ": " + errResp.Message
		}
	}

	var class error
	switch {
	case status >= 500, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		class = ErrNetwork
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		class = ErrUnauthorized
	default:
		class = ErrRejected
	}

	return fmt.Errorf("%w: server error (%d): %s", class, status, msg)
}
