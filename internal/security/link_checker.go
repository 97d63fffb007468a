package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// LinkStatus は資料リンクの到達確認の結果。
type LinkStatus struct {
	URL        string
	Checkable  bool // http/httpsのURLで、確認を実行した場合true
	Reachable  bool
	StatusCode int
	Detail     string
}

// LinkChecker は資料リンクが到達可能かを確認する。
// 内部ネットワークへのアクセスはSSRFGuardのクライアントで拒否する。
type LinkChecker struct {
	client   *http.Client
	validate func(string) error
	logger   *slog.Logger
}

// NewLinkChecker はguardの安全なクライアントを使うLinkCheckerを生成する。
func NewLinkChecker(guard SSRFGuardService, timeout time.Duration, logger *slog.Logger) *LinkChecker {
	return &LinkChecker{
		client:   guard.NewSafeClient(timeout),
		validate: guard.ValidateURL,
		logger:   logger,
	}
}

// Check はHEADリクエストを送り、405の場合はGETで再確認する。
// パス形式のリンクは確認せずCheckable=falseを返す。
func (c *LinkChecker) Check(ctx context.Context, raw string) LinkStatus {
	st := LinkStatus{URL: raw}

	kind, err := ClassifyDocumentLink(raw)
	if err != nil {
		st.Detail = err.Error()
		return st
	}
	if kind != LinkURL {
		st.Detail = "not a web link"
		return st
	}
	if err := c.validate(raw); err != nil {
		st.Detail = fmt.Sprintf("blocked: %v", err)
		return st
	}

	st.Checkable = true
	code, err := c.fetchStatus(ctx, http.MethodHead, raw)
	if err == nil && code == http.StatusMethodNotAllowed {
		code, err = c.fetchStatus(ctx, http.MethodGet, raw)
	}
	if err != nil {
		c.logger.Info("document link check failed",
			slog.String("url", raw),
			slog.String("error", err.Error()),
		)
		st.Detail = "unreachable"
		return st
	}

	st.StatusCode = code
	st.Reachable = code >= 200 && code < 400
	st.Detail = http.StatusText(code)
	return st
}

func (c *LinkChecker) fetchStatus(ctx context.Context, method, raw string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, raw, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "ResearchTracker/1.0 LinkChecker")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
