package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"auto_trader/internal/errs"
	"auto_trader/internal/models"
	"auto_trader/pkg/retry"
)

const defaultBaseURL = "https://api.gateio.ws/api/v4"

// Params — всё, что нужно клиенту, явно через конструктор:
// никакого «текущего аккаунта» в глобалках.
type Params struct {
	BaseURL   string
	APIKey    string
	APISecret string

	Timeout   time.Duration
	RPS       float64
	CacheTTL  time.Duration
	ReadRetry retry.Policy
}

// Client — REST-клиент фьючерсов Gate (settle=usdt) для одного аккаунта.
// Публичный клиент (маркет-дата) — это тот же Client с пустыми ключами.
type Client struct {
	baseURL   string
	wsBaseURL string
	http      *http.Client
	apiKey    string
	apiSecret string

	limiter   *rate.Limiter
	readRetry retry.Policy

	cacheTTL   time.Duration
	posMu      sync.RWMutex
	posCache   []models.LivePosition
	posCacheAt time.Time
}

func NewClient(p Params) *Client {
	if p.BaseURL == "" {
		p.BaseURL = defaultBaseURL
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	if p.RPS <= 0 {
		p.RPS = 8
	}
	if p.CacheTTL <= 0 {
		p.CacheTTL = 3 * time.Second
	}
	return &Client{
		baseURL:   p.BaseURL,
		wsBaseURL: wsURL,
		http:      &http.Client{Timeout: p.Timeout},
		apiKey:    p.APIKey,
		apiSecret: p.APISecret,
		limiter:   rate.NewLimiter(rate.Limit(p.RPS), 1),
		readRetry: p.ReadRetry,
		cacheTTL:  p.CacheTTL,
	}
}

// sign — схема Gate v4: HMAC-SHA512 от
// METHOD\npath\nquery\nsha512(body)\ntimestamp.
func (c *Client) sign(method, requestPath, query, body, ts string) string {
	payloadHash := sha512.Sum512([]byte(body))
	msg := method + "\n" + requestPath + "\n" + query + "\n" + hex.EncodeToString(payloadHash[:]) + "\n" + ts

	h := hmac.New(sha512.New, []byte(c.apiSecret))
	h.Write([]byte(msg))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) newRequest(ctx context.Context, method, requestPath, query, body string, private bool) (*http.Request, error) {
	u := c.baseURL + requestPath
	if query != "" {
		u += "?" + query
	}

	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if private {
		if c.apiKey == "" || c.apiSecret == "" {
			return nil, errs.Credentialf("api creds empty")
		}
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("KEY", c.apiKey)
		req.Header.Set("Timestamp", ts)
		req.Header.Set("SIGN", c.sign(method, "/api/v4"+requestPath, query, body, ts))
	}
	return req, nil
}

// do выполняет запрос с учётом рейт-лимита и классифицирует ошибку.
func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return errs.Transient(err, "rate limit wait")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Transient(err, "do request")
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return classifyHTTP(resp.StatusCode, rb)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rb, out); err != nil {
		return errs.Transient(err, fmt.Sprintf("decode body %q", truncate(rb, 256)))
	}
	return nil
}

// getJSON — read-only вызов с ретраями transient-ошибок.
// Ордеры так не ходят: их не ретраим никогда.
func (c *Client) getJSON(ctx context.Context, requestPath, query string, private bool, out any) error {
	return c.readRetry.Do(ctx, errs.IsTransient, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, requestPath, query, "", private)
		if err != nil {
			return err
		}
		return c.do(req, out)
	})
}

func classifyHTTP(status int, body []byte) error {
	var e apiError
	_ = json.Unmarshal(body, &e)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.Credentialf("gate http %d: label=%s msg=%s", status, e.Label, e.Message)
	case status == http.StatusTooManyRequests || status/100 == 5:
		return errs.Transientf("gate http %d: label=%s msg=%s", status, e.Label, e.Message)
	default:
		return errs.Rejectionf("gate http %d: label=%s msg=%s", status, e.Label, e.Message)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
