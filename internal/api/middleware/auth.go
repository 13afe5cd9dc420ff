package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
)

// apiToken защищает API endpoints. Загружается из переменной окружения
// API_AUTH_TOKEN. Если не установлен, аутентификация отключена
// (локальное развертывание с одним пользователем).
var apiToken = os.Getenv("API_AUTH_TOKEN")

// Auth - middleware для аутентификации API запросов.
//
// Ожидает заголовок Authorization: Bearer <token>, где token совпадает
// с API_AUTH_TOKEN. Сравнение constant-time для защиты от timing attacks.
// При пустом API_AUTH_TOKEN пропускает все запросы.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// debugUsername и debugPassword защищают debug/pprof endpoints.
// Загружаются из DEBUG_USERNAME и DEBUG_PASSWORD.
var (
	debugUsername = os.Getenv("DEBUG_USERNAME")
	debugPassword = os.Getenv("DEBUG_PASSWORD")
)

// DebugAuth - middleware для защиты debug/pprof endpoints.
//
// HTTP Basic Authentication с constant-time сравнением. Если credentials
// не настроены, доступ разрешен только при ENV=development (или пустом ENV).
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if debugUsername == "" || debugPassword == "" {
			if env := os.Getenv("ENV"); env == "development" || env == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD.", http.StatusForbidden)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(debugPassword)) == 1

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
