// Package router exposes the shortener over HTTP using the chi router.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/linkshrt/internal/logger"
	"github.com/patric-chuzhbe/linkshrt/internal/metrics"
	"github.com/patric-chuzhbe/linkshrt/internal/models"
)

const (
	healthyMessage = "Hello, World! Database connection successful!"

	errOriginalURLRequired = "Original URL is required"
	errInvalidCustomToken  = "Custom short URL must be alphanumeric and up to 10 characters long"
	errCustomTokenExists   = "Custom short URL already exists"
	errShortURLNotFound    = "Short URL not found"
	errInvalidJSON         = "Invalid JSON body"
	errInternal            = "Internal server error"
)

// ReservedPaths are GET routes that shadow a token of the same name.
// POST /shorten does not, so "shorten" stays a valid token.
var ReservedPaths = []string{"metrics"}

type shortener interface {
	Shorten(ctx context.Context, originalURL, customToken string) (string, error)
	Resolve(ctx context.Context, short string) (string, error)
	Ping(ctx context.Context) error
}

// Router wires the HTTP handlers to the shortening service.
type Router struct {
	service shortener
	metrics *metrics.Metrics
	mux     *chi.Mux
}

type initOptions struct {
	metrics *metrics.Metrics
}

// InitOption defines a functional option for New.
type InitOption func(*initOptions)

// WithMetrics enables request duration metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) InitOption {
	return func(options *initOptions) {
		options.metrics = m
	}
}

func New(service shortener, optionsProto ...InitOption) *Router {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	theRouter := &Router{
		service: service,
		metrics: options.metrics,
		mux:     chi.NewRouter(),
	}

	theRouter.mux.Use(
		logger.WithRequestIDHTTPMiddleware,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
	)
	if theRouter.metrics != nil {
		theRouter.mux.Use(theRouter.metrics.HTTPMiddleware)
		theRouter.mux.Method(http.MethodGet, `/metrics`, theRouter.metrics.Handler())
	}

	theRouter.mux.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5, "application/json", "text/plain"))
		r.Get(`/`, theRouter.GetPing)
		r.Post(`/shorten`, theRouter.PostShorten)
		r.Get(`/{short_url}`, theRouter.GetRedirectToOriginalURL)
	})

	return theRouter
}

func (theRouter *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	theRouter.mux.ServeHTTP(w, r)
}

// GetPing reports whether the database is reachable.
func (theRouter *Router) GetPing(res http.ResponseWriter, req *http.Request) {
	res.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if err := theRouter.service.Ping(req.Context()); err != nil {
		logger.Log.Errorln("database ping failed", zap.Error(err))
		res.WriteHeader(http.StatusServiceUnavailable)
		_, _ = res.Write([]byte("Error: " + err.Error()))
		return
	}

	_, _ = res.Write([]byte(healthyMessage))
}

// PostShorten creates a mapping from a JSON body of the form
// {"original_url": "...", "custom_short_url": "..."}.
func (theRouter *Router) PostShorten(res http.ResponseWriter, req *http.Request) {
	var request models.ShortenRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		writeJSONError(res, http.StatusBadRequest, errInvalidJSON)
		return
	}

	short, err := theRouter.service.Shorten(req.Context(), request.OriginalURL, request.CustomShortURL)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrOriginalURLRequired):
			writeJSONError(res, http.StatusBadRequest, errOriginalURLRequired)
		case errors.Is(err, models.ErrInvalidCustomToken):
			writeJSONError(res, http.StatusBadRequest, errInvalidCustomToken)
		case errors.Is(err, models.ErrConflict):
			writeJSONError(res, http.StatusBadRequest, errCustomTokenExists)
		default:
			logger.Log.Errorln(
				"shorten failed",
				"request_id", logger.RequestIDFromContext(req.Context()),
				zap.Error(err),
			)
			writeJSONError(res, http.StatusInternalServerError, errInternal)
		}
		return
	}

	writeJSON(res, http.StatusCreated, models.ShortenResponse{ShortURL: short})
}

// GetRedirectToOriginalURL answers with a 302 to the destination stored under the token.
func (theRouter *Router) GetRedirectToOriginalURL(res http.ResponseWriter, req *http.Request) {
	short := chi.URLParam(req, "short_url")

	originalURL, err := theRouter.service.Resolve(req.Context(), short)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeJSONError(res, http.StatusNotFound, errShortURLNotFound)
			return
		}
		logger.Log.Errorln(
			"resolve failed",
			"request_id", logger.RequestIDFromContext(req.Context()),
			zap.Error(err),
		)
		writeJSONError(res, http.StatusInternalServerError, errInternal)
		return
	}

	// The stored destination goes out verbatim, scheme-less values included.
	res.Header().Set("Location", originalURL)
	res.WriteHeader(http.StatusFound)
}

func writeJSON(res http.ResponseWriter, status int, payload any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)

	if err := json.NewEncoder(res).Encode(payload); err != nil {
		logger.Log.Debugln("error while encoding the response", zap.Error(err))
	}
}

func writeJSONError(res http.ResponseWriter, status int, message string) {
	writeJSON(res, status, models.ErrorResponse{Error: message})
}
