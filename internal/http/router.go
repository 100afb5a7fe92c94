package http

import (
	"net/http"

	"mednotes/internal/analytics"
	"mednotes/internal/assistant"
	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"
	"mednotes/internal/config"
	"mednotes/internal/http/handler"
	mw "mednotes/internal/http/middleware"
	"mednotes/internal/listing"
	"mednotes/internal/progress"
	"mednotes/internal/reader"
	"mednotes/internal/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Deps are the stores and services the routes are built from.
type Deps struct {
	Catalog   catalog.Store
	Bookmarks bookmark.Store
	Progress  progress.Store
	Sessions  *session.Manager
	JWT       *auth.JWT
	Views     reader.ViewRecorder
	Assistant assistant.Responder
	Analytics *analytics.Service
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}
	r.Use(auth.Identify(d.JWT, d.Sessions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{Sessions: d.Sessions, JWT: d.JWT}
	r.Post("/auth/signup", ah.Signup)
	r.Post("/auth/login", ah.Login)
	r.With(auth.RequireAuth).Post("/auth/logout", ah.Logout)

	me := &handler.MeHandler{Sessions: d.Sessions}
	r.Route("/me", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/", me.Me)
		r.Patch("/", me.Update)
		r.Post("/upgrade", me.Upgrade)
	})

	notes := &handler.NotesHandler{
		Catalog:  d.Catalog,
		Pipeline: &listing.Pipeline{Catalog: d.Catalog, Bookmarks: d.Bookmarks},
		Reader: &reader.Reader{
			Catalog:   d.Catalog,
			Bookmarks: d.Bookmarks,
			Progress:  d.Progress,
			Views:     d.Views,
		},
	}
	marks := &handler.BookmarkHandler{Store: d.Bookmarks, Catalog: d.Catalog}

	r.Get("/subjects", notes.Subjects)
	r.Route("/notes", func(r chi.Router) {
		r.Get("/", notes.List)
		r.Get("/{id}", notes.Open)
		r.Get("/{id}/pages/{page}", notes.Page)
		r.With(auth.RequireAuth).Get("/{id}/bookmarks", marks.ForNote)
	})

	r.Route("/bookmarks", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/", marks.List)
		r.Post("/", marks.Upsert)
		r.Delete("/{id}", marks.Delete)
	})

	prog := &handler.ProgressHandler{Store: d.Progress}
	r.Get("/progress", prog.List)

	chat := &handler.AssistantHandler{Responder: d.Assistant}
	r.Get("/assistant/welcome", chat.Welcome)
	r.Post("/assistant/messages", chat.Send)

	admin := &handler.AdminHandler{Catalog: d.Catalog, Analytics: d.Analytics}
	r.Route("/admin", func(r chi.Router) {
		r.Use(chimw.BasicAuth("mednotes-admin", map[string]string{cfg.AdminUsername: cfg.AdminPassword}))
		r.Post("/notes", admin.CreateNote)
		r.Patch("/notes/{id}", admin.UpdateNote)
		r.Delete("/notes/{id}", admin.DeleteNote)
		r.Get("/analytics", admin.Dashboard)
	})

	return r
}
