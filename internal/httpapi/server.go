package httpapi

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	mw "sitewatch/internal/httpapi/middleware"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
)

// TaskCounter exposes the scheduler's live task table size.
type TaskCounter interface {
	TaskCount() int
}

type Server struct {
	Logger  *zap.Logger
	Store   repo.Store
	Checker probe.Checker
	Tasks   TaskCounter
	Driver  string
}

func NewServer(l *zap.Logger, store repo.Store, chk probe.Checker, tasks TaskCounter, driver string) *Server {
	return &Server{Logger: l, Store: store, Checker: chk, Tasks: tasks, Driver: driver}
}

// Router wires the public read surface and the admin mutations behind
// their own keys and rate limits. With no origins configured CORS is
// wide open, which matches local dashboard development.
func (s *Server) Router(keys mw.Keys, origins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()

	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Read surface: public or admin key.
	r.Group(func(g chi.Router) {
		g.Use(mw.RequireAny(keys))
		g.Use(mw.RateLimit(pubRPM, pubBurst))

		g.Get("/api/status", s.handleStatus)
		g.Get("/api/config", s.handleConfig)
		g.Get("/api/websites/{id}/checks", s.handleWebsiteChecks)
		g.Get("/api/websites/{id}/uptime", s.handleWebsiteUptime)
		g.Get("/api/alerts", s.handleAlerts)
	})

	// Mutations: admin key only.
	r.Group(func(g chi.Router) {
		g.Use(mw.RequireAdmin(keys))
		g.Use(mw.RateLimit(admRPM, admBurst))

		g.Post("/api/projects", s.handleCreateProject)
		g.Put("/api/projects/{id}/setting", s.handlePutSetting)
		g.Post("/api/projects/{id}/websites", s.handleAddWebsite)
		g.Delete("/api/websites/{id}", s.handleRemoveWebsite)
	})

	return r
}

func isValidHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// normalizeHTTPURL lowercases the host, strips default ports and the
// bare trailing slash, so "https://EXAMPLE.com/" and
// "https://example.com" register as the same website.
func normalizeHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if p := u.Port(); p != "" {
		dflt := (u.Scheme == "http" && p == "80") || (u.Scheme == "https" && p == "443")
		if !dflt {
			host = net.JoinHostPort(host, p)
		}
	}
	u.Host = host
	if u.Path == "/" {
		u.Path = ""
	}
	u.Fragment = ""
	return u.String()
}
