package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"help_directory/internal/app"
	"help_directory/internal/domain"
)

const maxBody = 1 << 20

type Handlers struct {
	Q *app.QueryService
	C *app.CommunityService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/facilities", h.searchFacilities)
		r.Get("/facilities/{slug}", h.getFacility)
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{dimension}/{slug}", h.getCategory)
		r.Get("/map", h.mapPoints)
		r.Post("/newsletter", h.subscribe)
		r.Delete("/newsletter/{token}", h.unsubscribe)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/facilities/{slug}/comments", h.addComment)
			r.Post("/facilities/{slug}/ratings", h.rate)
			r.Get("/notifications", h.listNotifications)
			r.Post("/notifications/{id}/read", h.markRead)
			r.Get("/notifications/preferences", h.getPreferences)
			r.Put("/notifications/preferences", h.putPreferences)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidRating):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable answers 304 when the client already holds this representation.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "request body must be valid JSON")
		return false
	}
	return true
}

// ---- directory ----

func (h *Handlers) searchFacilities(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := domain.FacilityQuery{
		Text:        strings.TrimSpace(qs.Get("q")),
		City:        strings.TrimSpace(qs.Get("city")),
		Voivodeship: strings.TrimSpace(qs.Get("voivodeship")),
		Filters:     map[domain.Dimension]string{},
	}
	for _, di := range domain.Dimensions {
		for _, name := range []string{di.Segment, string(di.Dimension)} {
			if v := strings.TrimSpace(qs.Get(name)); v != "" {
				q.Filters[di.Dimension] = v
			}
		}
	}

	if ls := qs.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > app.MaxPageSize {
			writeProblem(w, http.StatusBadRequest, "Invalid limit",
				fmt.Sprintf("limit must be an integer between 1 and %d", app.MaxPageSize))
			return
		}
		q.Limit = l
	}
	if off := qs.Get("offset"); off != "" {
		o, err := strconv.Atoi(off)
		if err != nil || o < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid offset", "offset must be a non-negative integer")
			return
		}
		q.Offset = o
	}

	out, err := h.Q.Search(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) getFacility(w http.ResponseWriter, r *http.Request) {
	v, err := h.Q.Facility(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, v)
}

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) getCategory(w http.ResponseWriter, r *http.Request) {
	d, ok := domain.ParseDimension(chi.URLParam(r, "dimension"))
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown category dimension")
		return
	}
	out, err := h.Q.Category(r.Context(), d, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) mapPoints(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Map(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

// ---- community ----

type commentRequest struct {
	Content string `json:"content"`
}

func (h *Handlers) addComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.C.AddComment(r.Context(), userID(r.Context()), chi.URLParam(r, "slug"), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) rate(w http.ResponseWriter, r *http.Request) {
	var req map[string]int
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.C.Rate(r.Context(), userID(r.Context()), slug, req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Q.Facility(r.Context(), slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Ratings)
}

type newsletterRequest struct {
	Email string `json:"email"`
}

type newsletterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := h.C.Subscribe(r.Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeJSON(w, http.StatusConflict, newsletterResponse{Message: "Ten adres jest już zapisany do newslettera."})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newsletterResponse{Success: true, Message: "Dziękujemy za zapisanie się do newslettera!"})
}

func (h *Handlers) unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.C.Unsubscribe(r.Context(), chi.URLParam(r, "token")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newsletterResponse{Success: true, Message: "Wypisano z newslettera."})
}

func (h *Handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be a positive integer")
			return
		}
		limit = l
	}
	out, err := h.C.Notifications(r.Context(), userID(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	if err := h.C.MarkRead(r.Context(), userID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) getPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.C.Preferences(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) putPreferences(w http.ResponseWriter, r *http.Request) {
	var p domain.NotificationPreference
	if !decodeBody(w, r, &p) {
		return
	}
	p.UserID = userID(r.Context())
	if err := h.C.SavePreferences(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
