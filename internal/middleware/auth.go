// Package middleware содержит HTTP middleware сервиса автовозвратов.
package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

const (
	// SignatureHeader содержит hex HMAC-SHA256 тела запроса.
	SignatureHeader = "X-Signature"

	maxBodySize = 1 << 20
)

// SignatureMiddleware проверяет подпись входящих событий площадки.
type SignatureMiddleware struct {
	secretKey []byte
}

// NewSignatureMiddleware создаёт middleware с указанным секретом. Если секрет пуст,
// генерируется случайный ключ, и все неподписанные этим ключом запросы отклоняются.
func NewSignatureMiddleware(secret string) *SignatureMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &SignatureMiddleware{
		secretKey: key,
	}
}

// Middleware читает тело запроса, сверяет подпись и передаёт тело дальше без изменений.
func (a *SignatureMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.Header.Get(SignatureHeader)
		if signature == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		r.Body.Close()

		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(a.Sign(body))) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// Sign возвращает hex HMAC-SHA256 тела.
func (a *SignatureMiddleware) Sign(body []byte) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// AdminAuth пропускает запросы с заголовком «Authorization: Bearer <token>».
// С пустым token административный API закрыт.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
