package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/MrSnakeDoc/handoff/internal/deferred"
	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/deps"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/mw"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/respond"
	"github.com/MrSnakeDoc/handoff/internal/logger"
	"github.com/MrSnakeDoc/handoff/internal/metrics"
)

const defaultMaxRecordBytes = 64 << 10

type createdResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateDeferred stores the posted record for the authenticated project.
func CreateDeferred(d deps.Deps) http.HandlerFunc {
	limit := d.MaxRecordBytes
	if limit <= 0 {
		limit = defaultMaxRecordBytes
	}

	return func(w http.ResponseWriter, r *http.Request) {
		project, ok := mw.ProjectFrom(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid project credentials")
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				metrics.DeferredRejected.WithLabelValues("too_large").Inc()
				respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, "record too large")
				return
			}
			respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "unreadable body")
			return
		}

		var rec domain.DeferredRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			metrics.DeferredRejected.WithLabelValues("malformed").Inc()
			respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "malformed JSON body")
			return
		}

		link, err := d.Deferred.Create(r.Context(), project, rec, mw.ClientIP(r, d.TrustProxy))
		if err != nil {
			writeServiceError(d, w, err)
			return
		}
		respond.OK(w, http.StatusCreated, createdResponse{ID: link.ID, ExpiresAt: link.ExpiresAt})
	}
}

// GetDeferred answers the install-time lookup. Absence is a successful
// answer with null data so clients can tell it apart from an outage.
func GetDeferred(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, ok := mw.ProjectFrom(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid project credentials")
			return
		}

		q := r.URL.Query()
		link, err := d.Deferred.Lookup(r.Context(), project,
			q.Get("packageName"), q.Get("deviceId"), domain.Platform(q.Get("platform")))
		switch {
		case errors.Is(err, deferred.ErrNotFound):
			respond.OK(w, http.StatusOK, nil)
		case err != nil:
			writeServiceError(d, w, err)
		default:
			respond.OK(w, http.StatusOK, link)
		}
	}
}

// DeleteDeferred removes the record after it has been claimed.
func DeleteDeferred(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, ok := mw.ProjectFrom(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid project credentials")
			return
		}

		q := r.URL.Query()
		if err := d.Deferred.Remove(r.Context(), project, q.Get("packageName"), q.Get("deviceId")); err != nil {
			writeServiceError(d, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeServiceError(d deps.Deps, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, deferred.ErrInvalidRecord):
		metrics.DeferredRejected.WithLabelValues("invalid").Inc()
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, err.Error())
	case errors.Is(err, deferred.ErrUnknownPackage):
		metrics.DeferredRejected.WithLabelValues("unknown_package").Inc()
		respond.Error(w, http.StatusNotFound, respond.CodeUnknownPackage, err.Error())
	case errors.Is(err, deferred.ErrNotFound):
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, err.Error())
	default:
		d.Logger.Error("deferred-links request failed", logger.Error(err))
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, "internal error")
	}
}
