// Package apiclient は研究プロジェクト管理バックエンドのHTTPクライアントを提供する。
//
// すべての応答は {success, message, data} の封筒形式で返る。
// 通信・ステータスの失敗はTransportError、success:falseはApplicationErrorとして区別する。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize は読み込む応答ボディの上限。
const maxResponseSize = 4 << 20

// 計測用の結果ラベル
const (
	OutcomeOK               = "ok"
	OutcomeTransportError   = "transport_error"
	OutcomeApplicationError = "application_error"
)

// TokenSource は送信時点のベアラートークンを返す。空文字列の場合は付与しない。
type TokenSource interface {
	Token() string
}

// Recorder はAPI呼び出しの結果を記録する。
type Recorder interface {
	RecordAPIRequest(method, resource, outcome string, duration time.Duration)
}

// Requester はServicesが利用する呼び出し口。
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	recorder   Recorder
	token      TokenSource
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithRecorder はメトリクスの記録先を指定する。
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New はClientを生成する。baseURLは "http://backend:8080/api" のように/apiまで含める。
func New(httpClient *http.Client, baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken はtsのトークンを付与するClientのコピーを返す。
// リクエストごとにセッションのStoreを渡して使う。
func (c *Client) WithToken(ts TokenSource) *Client {
	cp := *c
	cp.token = ts
	return &cp
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Do はリクエストを1回だけ送信し、封筒のdataをoutにデコードする。
// bodyがnilの場合はボディを送らない。outがnilの場合はdataを読み捨てる。
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	err := c.do(ctx, method, path, body, out)
	c.record(method, path, err, time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if t := c.token.Token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		te := &TransportError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
		if decodeErr == nil {
			te.Message = env.Message
		}
		level := slog.LevelWarn
		if resp.StatusCode >= 500 {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "backend returned error status",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return te
	}

	if decodeErr != nil {
		c.logger.Error("failed to decode backend response",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", decodeErr.Error()),
		)
		return &TransportError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode envelope: %w", decodeErr),
		}
	}

	if !env.Success {
		return &ApplicationError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    env.Message,
		}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode data: %w", err),
		}
	}
	return nil
}

func (c *Client) record(method, path string, err error, d time.Duration) {
	if c.recorder == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeTransportError
		var ae *ApplicationError
		if errors.As(err, &ae) {
			outcome = OutcomeApplicationError
		}
	}
	c.recorder.RecordAPIRequest(method, resourceOf(path), outcome, d)
}

// resourceOf はパスの先頭セグメントを返す。IDは含めない。
func resourceOf(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(p, "/?"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}

// compile-time interface check
var _ Requester = (*Client)(nil)
