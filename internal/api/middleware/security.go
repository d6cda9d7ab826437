package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

var loopbackOrigins = []string{"http://localhost", "http://127.0.0.1", "http://[::1]"}

// forbid answers 403 with the console's error envelope.
func forbid(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Warn("request rejected",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"host", r.Host,
		"remoteAddr", r.RemoteAddr,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(models.APIError{
		Error: models.APIErrorDetail{Code: config.ErrorForbidden, Message: reason},
	})
}

// HostCheck rejects requests whose Host header is not a loopback name.
// The console drives live ads, so it never answers on other interfaces.
func HostCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackHost(r.Host) {
			forbid(w, r, "host not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	return loopbackHosts[strings.Trim(host, "[]")]
}

// CORS reflects loopback origins only. Preflight requests end here.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); isLocalhostOrigin(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+config.CSRFHeaderName)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "3600")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLocalhostOrigin(origin string) bool {
	for _, base := range loopbackOrigins {
		if origin == base || strings.HasPrefix(origin, base+":") {
			return true
		}
	}
	return false
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// CSRF is a double-submit check. Safe requests get a token cookie when they
// lack one; any other request must send the cookie value back in the CSRF
// header.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(config.CSRFCookieName)
		hasCookie := err == nil && cookie.Value != ""

		if isSafeMethod(r.Method) {
			if !hasCookie {
				http.SetCookie(w, &http.Cookie{
					Name:     config.CSRFCookieName,
					Value:    generateCSRFToken(),
					Path:     "/",
					HttpOnly: false, // read by the console's JS
					SameSite: http.SameSiteStrictMode,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		if !hasCookie {
			forbid(w, r, "missing CSRF cookie")
			return
		}
		header := r.Header.Get(config.CSRFHeaderName)
		if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
			forbid(w, r, "invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func generateCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		slog.Error("generate CSRF token", "error", err)
		return ""
	}
	return hex.EncodeToString(b)
}
