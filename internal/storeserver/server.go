// Package storeserver is a reference implementation of the record store the
// game devices poll: schemaless collections with create / equality-filter /
// partial-update / delete over plain JSON REST.
package storeserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the record store REST contract.
type Server struct {
	repo    Repository
	apiKey  string
	metrics *Metrics
}

// NewServer wires a repository behind the HTTP contract. Pass nil metrics to
// disable instrumentation (tests).
func NewServer(repo Repository, apiKey string, metrics *Metrics) *Server {
	return &Server{repo: repo, apiKey: apiKey, metrics: metrics}
}

// Handler builds the full HTTP handler: entities routes, health, metrics,
// permissive CORS for phone browsers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/entities/", s.handleEntities)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Warn().Err(err).Msg("failed to write health check response")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// HTTPServer wraps the handler in an h2c-capable http.Server.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	if s.metrics != nil {
		s.metrics.Errors.WithLabelValues(fmt.Sprintf("%d", status)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Error: msg}); err != nil {
		log.Warn().Err(err).Msg("failed to write error response")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	key := r.Header.Get("api_key")
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1
}

// handleEntities routes /entities/{Collection} and
// /entities/{Collection}/{id}.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.InFlight.Inc()
		start := time.Now()
		defer func() {
			s.metrics.InFlight.Dec()
			s.metrics.Durations.Observe(time.Since(start).Seconds())
		}()
	}

	if !s.authorized(r) {
		s.writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/entities/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	collection := parts[0]
	if collection == "" {
		s.writeError(w, http.StatusNotFound, "missing collection")
		return
	}
	var id string
	if len(parts) == 2 {
		id = parts[1]
	}

	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues(collection, r.Method).Inc()
	}

	switch {
	case r.Method == http.MethodPost && id == "":
		s.create(w, r, collection)
	case r.Method == http.MethodGet && id == "":
		s.list(w, r, collection)
	case r.Method == http.MethodPut && id != "":
		s.update(w, r, collection, id)
	case r.Method == http.MethodDelete && id != "":
		s.delete(w, r, collection, id)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "unsupported method for path")
	}
}

func decodeRecord(r *http.Request) (Record, error) {
	var data Record
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, collection string) {
	data, err := decodeRecord(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	created, err := s.repo.Create(r.Context(), collection, data)
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("create failed")
		s.writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	s.writeJSON(w, http.StatusOK, created)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, collection string) {
	filters := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 && values[0] != "" {
			filters[key] = values[0]
		}
	}
	records, err := s.repo.List(r.Context(), collection, filters)
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("list failed")
		s.writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, collection, id string) {
	patch, err := decodeRecord(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	updated, err := s.repo.Update(r.Context(), collection, id, patch)
	if errors.Is(err, ErrNotFound) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", collection, id))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("update failed")
		s.writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request, collection, id string) {
	err := s.repo.Delete(r.Context(), collection, id)
	if errors.Is(err, ErrNotFound) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", collection, id))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("delete failed")
		s.writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
