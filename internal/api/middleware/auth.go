// Package middleware HTTP middleware роутера: идентификация пользователя
// и метрики запросов
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/overlinehq/booking-service/internal/api/handlers"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDHeader заголовок с идентификатором пользователя, проставляется
// API gateway после аутентификации
const UserIDHeader = "X-User-ID"

// Auth требует валидный X-User-ID и кладет его в контекст запроса
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := parseUserID(r)
		if !ok {
			handlers.RespondError(w, http.StatusUnauthorized, "отсутствует или некорректен заголовок X-User-ID")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext возвращает идентификатор пользователя, положенный Auth
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// OptionalUserID читает X-User-ID напрямую из запроса.
// Используется на маршрутах, где действующее лицо может быть гостем.
func OptionalUserID(r *http.Request) *int64 {
	if userID, ok := parseUserID(r); ok {
		return &userID
	}
	return nil
}

func parseUserID(r *http.Request) (int64, bool) {
	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}
