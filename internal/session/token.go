package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// errNoExpiry はトークンにexpクレームが含まれない場合のエラー。
var errNoExpiry = errors.New("token has no exp claim")

// tokenParser は署名検証を行わずにクレームだけを読み出すパーサー。
// 署名鍵はバックエンドだけが持つため、クライアント側では期限の確認のみ行う。
var tokenParser = jwt.NewParser()

// tokenExpiry はトークンのexpクレーム（UNIX秒）を読み出す。
func tokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, errNoExpiry
	}
	return exp.Time, nil
}

// tokenValidAt はトークンの期限がnowより後かどうかを返す。
// ミリ秒単位で exp*1000 > now を比較する。
func tokenValidAt(raw string, now time.Time) (bool, error) {
	exp, err := tokenExpiry(raw)
	if err != nil {
		return false, err
	}
	return exp.UnixMilli() > now.UnixMilli(), nil
}
