package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billlzzz10/unicornxos/internal/domain"
)

// resource binds one stored entity type to its REST routes. Updates
// decode the body over the stored record, so absent fields keep their
// value.
type resource[T any] struct {
	name   string // key of the list in GET responses
	list   func(context.Context, domain.LoreFilter) ([]T, error)
	get    func(context.Context, string) (*T, error)
	create func(context.Context, T) (*T, error)
	update func(context.Context, T) (*T, error)
	remove func(context.Context, string) error
	id     func(*T) *string
}

func (res resource[T]) routes(s *Server) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			items, err := res.list(r.Context(), domain.LoreFilter{ProjectID: q.Get("projectId"), Query: q.Get("q")})
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{res.name: items})
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var item T
			if err := decodeJSON(w, r, &item); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			created, err := res.create(r.Context(), item)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			item, err := res.get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, item)
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			item, err := res.get(ctx, chi.URLParam(r, "id"))
			if err != nil {
				s.fail(w, r, err)
				return
			}
			id := *res.id(item)
			if err := decodeJSON(w, r, item); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			*res.id(item) = id

			updated, err := res.update(ctx, *item)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := res.remove(r.Context(), chi.URLParam(r, "id")); err != nil {
				s.fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func (s *Server) projects() resource[domain.Project] {
	return resource[domain.Project]{
		name: "projects",
		list: func(ctx context.Context, _ domain.LoreFilter) ([]domain.Project, error) {
			return s.Store.ListProjects(ctx)
		},
		get:    s.Store.GetProject,
		create: s.Store.CreateProject,
		update: s.Store.UpdateProject,
		remove: s.Store.DeleteProject,
		id:     func(p *domain.Project) *string { return &p.ID },
	}
}

func (s *Server) dictionary() resource[domain.DictionaryEntry] {
	return resource[domain.DictionaryEntry]{
		name:   "entries",
		list:   s.Store.ListDictionary,
		get:    s.Store.GetDictionaryEntry,
		create: s.Store.CreateDictionaryEntry,
		update: s.Store.UpdateDictionaryEntry,
		remove: s.Store.DeleteDictionaryEntry,
		id:     func(e *domain.DictionaryEntry) *string { return &e.ID },
	}
}

func (s *Server) plotPoints() resource[domain.PlotPoint] {
	return resource[domain.PlotPoint]{
		name:   "plotPoints",
		list:   s.Store.ListPlotPoints,
		get:    s.Store.GetPlotPoint,
		create: s.Store.CreatePlotPoint,
		update: s.Store.UpdatePlotPoint,
		remove: s.Store.DeletePlotPoint,
		id:     func(p *domain.PlotPoint) *string { return &p.ID },
	}
}

func (s *Server) worldElements() resource[domain.WorldElement] {
	return resource[domain.WorldElement]{
		name:   "worldElements",
		list:   s.Store.ListWorldElements,
		get:    s.Store.GetWorldElement,
		create: s.Store.CreateWorldElement,
		update: s.Store.UpdateWorldElement,
		remove: s.Store.DeleteWorldElement,
		id:     func(e *domain.WorldElement) *string { return &e.ID },
	}
}
