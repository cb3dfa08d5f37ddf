package webd

import (
	"io"
	"net"
	"net/http"
	"time"

	ghandlers "github.com/gorilla/handlers"
)

// tokenAuthenticationMiddleware requires the configured token,
// in the X-Wayside-Token header or an api_token query param.
// If no token is configured, it allows all requests.
func (s *WebDaemon) tokenAuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		validToken := s.Config.Token
		if validToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get("X-Wayside-Token")
		if token == "" {
			token = r.URL.Query().Get("api_token")
		}
		if token != validToken {
			s.logger.Warn("Invalid token", "method", r.Method, "url", r.URL, "remote", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func permissiveCorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Add("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, X-Wayside-Token")
		next.ServeHTTP(w, r)
	})
}

func contentTypeMiddlewareFunc(contentType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			next.ServeHTTP(w, r)
		})
	}
}

// writeLog logs one served request.
func (s *WebDaemon) writeLog(_ io.Writer, params ghandlers.LogFormatterParams) {
	host, _, err := net.SplitHostPort(params.Request.RemoteAddr)
	if err != nil {
		host = params.Request.RemoteAddr
	}
	s.logger.Debug("Request",
		"remote", host,
		"method", params.Request.Method,
		"uri", params.URL.RequestURI(),
		"status", params.StatusCode,
		"size", params.Size,
		"elapsed", time.Since(params.TimeStamp).Round(time.Microsecond),
	)
}

func (s *WebDaemon) loggingMiddleware(next http.Handler) http.Handler {
	return ghandlers.CustomLoggingHandler(io.Discard, next, s.writeLog)
}
