package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthHandler 认证处理器：签发并校验访问令牌
type AuthHandler struct {
	secret   []byte
	tokenTTL time.Duration
}

// TokenRequest 令牌签发请求
type TokenRequest struct {
	UserID string `json:"user_id"`
}

// TokenResponse 令牌签发响应
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(secret string) *AuthHandler {
	if secret == "" {
		secret = "tankstorm-dev-secret"
	}
	return &AuthHandler{
		secret:   []byte(secret),
		tokenTTL: 24 * time.Hour,
	}
}

// HandleToken 签发访问令牌
func (a *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "仅支持POST方法")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "无效的令牌请求")
		return
	}

	expiresAt := time.Now().Add(a.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   req.UserID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "签发令牌失败")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     signed,
		ExpiresAt: expiresAt.Unix(),
	})
}

// Middleware 认证中间件：校验Bearer令牌
func (a *AuthHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "缺少访问令牌")
			return
		}

		userID, err := a.verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "无效的访问令牌")
			return
		}

		r.Header.Set("X-User-ID", userID)
		next.ServeHTTP(w, r)
	})
}

// verify 校验令牌并返回用户ID
func (a *AuthHandler) verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("令牌无效")
	}
	return claims.Subject, nil
}
