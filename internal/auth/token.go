// Package auth はパスワード認証とJWTトークンの発行・検証を提供する。
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン種別。typeクレームとして埋め込まれ、アクセストークンと
// リフレッシュトークンの取り違えを防ぐ。
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims はJWTに埋め込むクレーム。
// Phoneはアクセストークンにのみ入り、リフレッシュトークンでは空になる。
type Claims struct {
	Phone     string `json:"phone,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// UserID はsubクレームをユーザーIDとして解釈する。
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, nil
}

// TokenIssuer はHS256署名のJWTを発行・検証する。
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess はアクセストークンを発行する。
func (t *TokenIssuer) IssueAccess(userID int64, phone string) (string, time.Time, error) {
	return t.issue(userID, phone, TokenTypeAccess, t.accessTTL)
}

// IssueRefresh はリフレッシュトークンを発行する。
// 有効期限はJWTのexpクレームにも入るが、権威はToken Store側のexpires_at。
func (t *TokenIssuer) IssueRefresh(userID int64) (string, time.Time, error) {
	return t.issue(userID, "", TokenTypeRefresh, t.refreshTTL)
}

func (t *TokenIssuer) issue(userID int64, phone, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := &Claims{
		Phone:     phone,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Decode はトークンを検証しクレームを返す。
// 署名不正・期限切れ・形式不正など、理由を問わず失敗時はnilを返す。
// 呼び出し側は失敗理由を区別せず一律に認証エラーとして扱う。
func (t *TokenIssuer) Decode(tokenString string) *Claims {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	return claims
}
