package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Recover captura panics e devolve JSON consistente. O detalhe e o stack
// vão para o log estruturado, nunca para a resposta.
func Recover(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(logrus.Fields{
						"request_id": r.Header.Get("X-Request-ID"),
						"path":       r.URL.Path,
						"panic":      rec,
					}).Error(string(debug.Stack()))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":      "internal",
						"request_id": r.Header.Get("X-Request-ID"),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
