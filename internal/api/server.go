// Package api exposes the operations service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"koabot/internal/ops"
	"koabot/internal/report"
	"koabot/internal/storage"
)

// GrammarStatter reports how often each grammar matched.
type GrammarStatter interface {
	GrammarStats(ctx context.Context, since time.Time) ([]storage.GrammarStat, error)
}

// Server serves the operations API.
type Server struct {
	svc     *ops.Service
	reports report.Source
	archive *report.Archive // nil when reports are not archived.
	stats   GrammarStatter  // nil when the line audit is disabled.
	log     logrus.FieldLogger
	now     func() time.Time

	port        string
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
	keyHashes   [][]byte        // bcrypt hashes of further keys.
	origins     []string
}

// Config holds configuration for the API server.
type Config struct {
	Port           string
	APIKeys        []string // Plain keys or bcrypt hashes. Empty disables authentication.
	AllowedOrigins string   // Comma separated, "*" for any.
}

// NewServer creates a server over svc. Reports read from src.
func NewServer(svc *ops.Service, src report.Source, cfg Config) *Server {
	keys := make(map[string]bool)
	var hashes [][]byte
	for _, k := range cfg.APIKeys {
		k = strings.TrimSpace(k)
		switch {
		case k == "":
		case isBcrypt(k):
			hashes = append(hashes, []byte(k))
		default:
			keys[k] = true
		}
	}

	var origins []string
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Server{
		svc:         svc,
		reports:     src,
		log:         logrus.StandardLogger(),
		now:         time.Now,
		port:        cfg.Port,
		authEnabled: len(keys)+len(hashes) > 0,
		apiKeys:     keys,
		keyHashes:   hashes,
		origins:     origins,
	}
}

// WithArchive uploads generated reports to a.
func (s *Server) WithArchive(a *report.Archive) *Server {
	s.archive = a
	return s
}

// WithStats enables the grammar statistics endpoint.
func (s *Server) WithStats(st GrammarStatter) *Server {
	s.stats = st
	return s
}

// WithLogger replaces the standard logrus logger.
func (s *Server) WithLogger(l logrus.FieldLogger) *Server {
	s.log = l
	return s
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required).
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.authEnabled {
				r.Use(s.authMiddleware)
			}

			r.Post("/parse", s.handleParse)
			r.Post("/users/telegram", s.handleUpsertUser)

			r.Post("/receptions", s.handleCreateReception)
			r.Get("/receptions", s.handleListReceptions)

			r.Post("/wastages", s.handleCreateWastage)
			r.Post("/wastages/batch", s.handleCreateWastageBatch)
			r.Get("/wastages", s.handleListWastages)

			r.Post("/productions", s.handleCreateProduction)
			r.Get("/productions", s.handleListProductions)

			r.Route("/operations", func(r chi.Router) {
				r.Get("/recent-suppliers", s.handleRecentSuppliers)
				r.Get("/recent-batches", s.handleRecentBatches)
				r.Post("/undo", s.handleUndo)
			})

			r.Get("/reports/weekly", s.handleWeeklyReport)
			r.Post("/reports/weekly", s.handleWeeklyReport)

			r.Get("/stats/grammars", s.handleGrammarStats)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", srv.Addr).Info("API starting")
		if s.authEnabled {
			s.log.Info("authentication: ENABLED (API key required)")
		} else {
			s.log.Info("authentication: DISABLED (open access)")
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// corsMiddleware adds CORS headers for browser access.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) string {
	for _, o := range s.origins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.validKey(apiKey) {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) validKey(key string) bool {
	if s.apiKeys[key] {
		return true
	}
	for _, h := range s.keyHashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return true
		}
	}
	return false
}

func isBcrypt(k string) bool {
	_, err := bcrypt.Cost([]byte(k))
	return err == nil
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

const maxBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}
