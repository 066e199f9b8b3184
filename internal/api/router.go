package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/finsight/internal/api/handlers"
	"github.com/wonny/finsight/pkg/logger"
	"github.com/wonny/finsight/pkg/metrics"
)

// Handlers groups every endpoint handler the router mounts
type Handlers struct {
	Forecast    *handlers.ForecastHandler
	Qualitative *handlers.QualitativeHandler
	Sources     *handlers.SourceHandler
	Runs        *handlers.RunHandler
	Models      *handlers.ModelHandler
}

// NewRouter creates and configures the HTTP router; recorder may be nil
// ⭐ SSOT: routes are registered in this function only
func NewRouter(h Handlers, recorder *metrics.Recorder, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	if recorder != nil {
		r.Handle("/metrics", recorder.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Forecasting
	api.HandleFunc("/forecast", h.Forecast.Forecast).Methods("POST")
	api.HandleFunc("/evaluate", h.Forecast.Evaluate).Methods("POST")
	api.HandleFunc("/evaluate/stream", h.Forecast.EvaluateStream).Methods("GET")
	api.HandleFunc("/models", h.Models.List).Methods("GET")
	api.HandleFunc("/runs", h.Runs.List).Methods("GET")

	// Qualitative
	api.HandleFunc("/scenarios", h.Qualitative.Scenarios).Methods("POST")
	api.HandleFunc("/delphi/round", h.Qualitative.DelphiRound).Methods("POST")

	// Web sources
	api.HandleFunc("/sources", h.Sources.List).Methods("GET")
	api.HandleFunc("/sources/{source}", h.Sources.Fetch).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(metricsMiddleware(recorder))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "finsight-api",
	})
}

// statusRecorder captures the response status for logs and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware chain
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func wrap(w http.ResponseWriter) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok {
		return sr
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrap(w)

			next.ServeHTTP(sw, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// metricsMiddleware observes request durations per route template
func metricsMiddleware(recorder *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrap(w)

			next.ServeHTTP(sw, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			recorder.ObserveHTTP(route, strconv.Itoa(sw.status), time.Since(start))
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
