package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sitematch/backend/internal/config"
	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/engine"
	"github.com/sitematch/backend/internal/metrics"
	"github.com/sitematch/backend/internal/recommend"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidJSON       = "INVALID_JSON"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidIdentifier = "INVALID_IDENTIFIER"
	CodeUnknownCategory   = "UNKNOWN_CATEGORY"
	CodeNoMatch           = "NO_MATCH"
	CodeEmptyCorpus       = "EMPTY_CORPUS"
	CodeInternal          = "INTERNAL_ERROR"
)

const maxBodyBytes = 1 << 20

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router chi.Router
	config config.ServerConfig
}

func NewServer(eng *engine.Engine, logger *logrus.Entry, cfg config.ServerConfig) *Server {
	s := &Server{
		Engine: eng,
		Logger: logger.WithField("component", "api"),
		Router: chi.NewRouter(),
		config: cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.Use(chimiddleware.RequestID)
	s.Router.Use(chimiddleware.RealIP)
	s.Router.Use(chimiddleware.Recoverer)
	s.Router.Use(s.requestLogger)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	s.Router.Get("/health", s.handleHealth)
	s.Router.Handle("/metrics", promhttp.Handler())

	s.Router.Group(func(r chi.Router) {
		if !s.config.RateLimitDisabled && s.config.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(s.config.RateLimitRequests, s.config.RateLimitWindow))
		}
		r.Post("/recommend", s.handleRecommend)
	})
}

// Start serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Infof("Starting API Server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down API Server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Requests and responses

// RecommendRequest is the body of POST /recommend. Identifiers may be JSON
// numbers or numeric strings.
type RecommendRequest struct {
	AppicNumbers  []json.RawMessage `json:"appic_numbers" validate:"required,min=1,max=100"`
	ProgramType   string            `json:"program_type" validate:"required"`
	DegreeType    string            `json:"degree_type" validate:"required"`
	Collaborative *bool             `json:"collaborative,omitempty"`
	Limit         int               `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

type HealthResponse struct {
	Status        string   `json:"status"`
	Sites         int      `json:"sites"`
	Categories    []string `json:"categories"`
	CorpusVersion string   `json:"corpus_version"`
	Requests      int64    `json:"requests"`
	Failures      int64    `json:"failures"`
	Uptime        string   `json:"uptime"`
}

// Handlers

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON", Code: CodeInvalidJSON})
		return
	}

	if fields := validateStruct(&req); fields != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{
			Error:   joinMessages(fields),
			Code:    CodeValidation,
			Details: fields,
		})
		return
	}

	favorites, err := ParseIdentifiers(req.AppicNumbers)
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid APPIC numbers format",
			Code:    CodeInvalidIdentifier,
			Details: map[string]string{"reason": err.Error()},
		})
		return
	}

	results, err := s.Engine.Recommend(r.Context(), engine.Query{
		Favorites:     favorites,
		Program:       req.ProgramType,
		Degree:        req.DegreeType,
		Collaborative: req.Collaborative,
		Limit:         req.Limit,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if results == nil {
		results = []recommend.Result{}
	}
	jsonResponse(w, http.StatusOK, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.Stats()
	jsonResponse(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Sites:         s.Engine.Corpus.Len(),
		Categories:    s.Engine.Corpus.FlagNames,
		CorpusVersion: s.Engine.Corpus.Version,
		Requests:      stats.Requests,
		Failures:      stats.Failures,
		Uptime:        time.Since(stats.StartTime).Round(time.Second).String(),
	})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, corpus.ErrUnknownCategory):
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeUnknownCategory})
	case errors.Is(err, recommend.ErrNoMatch):
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNoMatch})
	case errors.Is(err, recommend.ErrEmptyCorpus):
		jsonResponse(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: CodeEmptyCorpus})
	default:
		s.Logger.WithError(err).Error("Recommendation request failed")
		jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: CodeInternal})
	}
}

// ParseIdentifiers converts raw JSON values to site identifiers. Integers,
// integral floats and strings holding an integer are accepted.
func ParseIdentifiers(raw []json.RawMessage) ([]int, error) {
	ids := make([]int, 0, len(raw))
	for _, v := range raw {
		v = bytes.TrimSpace(v)
		text := string(v)
		if len(v) > 0 && v[0] == '"' {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, fmt.Errorf("%w: %s", recommend.ErrInvalidIdentifier, text)
			}
			text = s
		}
		id, err := parseIdentifier(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", recommend.ErrInvalidIdentifier, string(v))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseIdentifier(text string) (int, error) {
	text = string(bytes.TrimSpace([]byte(text)))
	if id, err := strconv.Atoi(text); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, recommend.ErrInvalidIdentifier
	}
	return int(f), nil
}

// Middleware

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.APIRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		s.Logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     status,
			"duration":   elapsed,
			"request_id": chimiddleware.GetReqID(r.Context()),
		}).Debug("Handled request")
	})
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		code = http.StatusInternalServerError
		response = []byte(`{"error":"failed to encode response","code":"INTERNAL_ERROR"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
