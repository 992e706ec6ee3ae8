package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter serves provider under /{resource}/{operation}, the layout
// HTTPProvider talks to. Mount it below the API base path.
func NewRouter[T any](resource string, provider DataProvider[T], opts ...Option[T]) chi.Router {
	cfg := newConfig(opts)
	s := &server[T]{
		provider: provider,
		logger:   cfg.logger.With().Str("resource", resource).Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/"+resource, func(r chi.Router) {
		r.Post("/"+OpReadCount, s.readCount)
		r.Post("/"+OpReadMany, s.readMany)
		r.Post("/"+OpReadOne, s.readOne)
		r.Post("/"+OpCreateOne, s.createOne)
		r.Post("/"+OpUpdateOne, s.updateOne)
		r.Post("/"+OpDeleteByID, s.deleteByID)
		if cfg.document != nil {
			document := cfg.document
			r.Get("/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, document)
			})
		}
	})
	return r
}

type server[T any] struct {
	provider DataProvider[T]
	logger   zerolog.Logger
}

func (s *server[T]) readCount(w http.ResponseWriter, r *http.Request) {
	var req ReadCount
	if !s.decode(w, r, &req) {
		return
	}
	count, err := s.provider.ReadCount(r.Context(), req)
	s.respond(w, count, err)
}

func (s *server[T]) readMany(w http.ResponseWriter, r *http.Request) {
	var req ReadMany
	if !s.decode(w, r, &req) {
		return
	}
	rows, err := s.provider.ReadMany(r.Context(), req)
	if rows == nil {
		rows = []T{}
	}
	s.respond(w, rows, err)
}

func (s *server[T]) readOne(w http.ResponseWriter, r *http.Request) {
	var req ReadOne
	if !s.decode(w, r, &req) {
		return
	}
	row, err := s.provider.ReadOne(r.Context(), req)
	s.respond(w, row, err)
}

func (s *server[T]) createOne(w http.ResponseWriter, r *http.Request) {
	var req CreateOne[T]
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.provider.CreateOne(r.Context(), req)
	s.respond(w, result, err)
}

func (s *server[T]) updateOne(w http.ResponseWriter, r *http.Request) {
	var req UpdateOne[T]
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.provider.UpdateOne(r.Context(), req)
	s.respond(w, result, err)
}

func (s *server[T]) deleteByID(w http.ResponseWriter, r *http.Request) {
	var req DeleteByID
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.provider.DeleteByID(r.Context(), req)
	s.respond(w, result, err)
}

func (s *server[T]) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid request body")
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *server[T]) respond(w http.ResponseWriter, data any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, data)
		return
	}
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error().Err(err).Msg("provider request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
