package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/billlzzz10/unicornxos/internal/domain"
)

const (
	dictionaryColumns = "id, term, definition, category, project_id"
	plotPointColumns  = "id, title, description, status, position, project_id"
	worldColumns      = "id, name, type, description, project_id"
)

// loreWhere turns f into a WHERE clause. The query matches any of cols.
func loreWhere(f domain.LoreFilter, cols ...string) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		ors := make([]string, len(cols))
		for i, c := range cols {
			ors[i] = c + ` LIKE ? ESCAPE '\'`
			args = append(args, pattern)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// --- Dictionary ---

// CreateDictionaryEntry inserts e with a fresh id
func (s *Store) CreateDictionaryEntry(ctx context.Context, e domain.DictionaryEntry) (*domain.DictionaryEntry, error) {
	if err := normalizeEntry(&e); err != nil {
		return nil, err
	}
	e.ID = s.newID()

	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO dictionary ("+dictionaryColumns+") VALUES (:id, :term, :definition, :category, :project_id)", &e)
	if err != nil {
		return nil, fmt.Errorf("insert dictionary entry: %w", err)
	}
	return &e, nil
}

func (s *Store) GetDictionaryEntry(ctx context.Context, idOrPrefix string) (*domain.DictionaryEntry, error) {
	id, err := s.resolveID(ctx, "dictionary", idOrPrefix)
	if err != nil {
		return nil, err
	}
	var e domain.DictionaryEntry
	if err := getRow(ctx, s.db, &e, "dictionary", dictionaryColumns, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListDictionary returns matching entries sorted by term, ignoring case.
// The query matches terms and definitions.
func (s *Store) ListDictionary(ctx context.Context, f domain.LoreFilter) ([]domain.DictionaryEntry, error) {
	where, args := loreWhere(f, "term", "definition")
	entries := []domain.DictionaryEntry{}
	err := s.db.SelectContext(ctx, &entries,
		"SELECT "+dictionaryColumns+" FROM dictionary"+where+" ORDER BY term COLLATE NOCASE, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list dictionary: %w", err)
	}
	return entries, nil
}

func (s *Store) UpdateDictionaryEntry(ctx context.Context, e domain.DictionaryEntry) (*domain.DictionaryEntry, error) {
	id, err := s.resolveID(ctx, "dictionary", e.ID)
	if err != nil {
		return nil, err
	}
	if err := normalizeEntry(&e); err != nil {
		return nil, err
	}
	e.ID = id

	_, err = s.db.NamedExecContext(ctx, `UPDATE dictionary SET
		term = :term, definition = :definition, category = :category, project_id = :project_id
		WHERE id = :id`, &e)
	if err != nil {
		return nil, fmt.Errorf("update dictionary entry: %w", err)
	}
	return s.GetDictionaryEntry(ctx, id)
}

func (s *Store) DeleteDictionaryEntry(ctx context.Context, idOrPrefix string) error {
	return s.deleteRow(ctx, "dictionary", idOrPrefix)
}

func normalizeEntry(e *domain.DictionaryEntry) error {
	e.Term = strings.TrimSpace(e.Term)
	if e.Term == "" {
		return fmt.Errorf("%w: dictionary term is required", ErrInvalid)
	}
	return nil
}

// --- Plot points ---

// CreatePlotPoint appends p to the end of its project's outline. Status
// defaults to planned.
func (s *Store) CreatePlotPoint(ctx context.Context, p domain.PlotPoint) (*domain.PlotPoint, error) {
	if err := normalizePlotPoint(&p); err != nil {
		return nil, err
	}
	p.ID = s.newID()

	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := sqlx.GetContext(ctx, tx, &p.Order,
			"SELECT COALESCE(MAX(position) + 1, 0) FROM plot_points WHERE project_id IS ?", p.ProjectID,
		); err != nil {
			return fmt.Errorf("next plot position: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx,
			"INSERT INTO plot_points ("+plotPointColumns+") VALUES (:id, :title, :description, :status, :position, :project_id)", &p,
		); err != nil {
			return fmt.Errorf("insert plot point: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPlotPoint(ctx context.Context, idOrPrefix string) (*domain.PlotPoint, error) {
	id, err := s.resolveID(ctx, "plot_points", idOrPrefix)
	if err != nil {
		return nil, err
	}
	var p domain.PlotPoint
	if err := getRow(ctx, s.db, &p, "plot_points", plotPointColumns, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlotPoints returns the outline in order. The query matches titles
// and descriptions.
func (s *Store) ListPlotPoints(ctx context.Context, f domain.LoreFilter) ([]domain.PlotPoint, error) {
	where, args := loreWhere(f, "title", "description")
	points := []domain.PlotPoint{}
	err := s.db.SelectContext(ctx, &points,
		"SELECT "+plotPointColumns+" FROM plot_points"+where+" ORDER BY position, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list plot points: %w", err)
	}
	return points, nil
}

// UpdatePlotPoint overwrites every field of p.ID, its position included
func (s *Store) UpdatePlotPoint(ctx context.Context, p domain.PlotPoint) (*domain.PlotPoint, error) {
	id, err := s.resolveID(ctx, "plot_points", p.ID)
	if err != nil {
		return nil, err
	}
	if err := normalizePlotPoint(&p); err != nil {
		return nil, err
	}
	p.ID = id

	_, err = s.db.NamedExecContext(ctx, `UPDATE plot_points SET
		title = :title, description = :description, status = :status, position = :position,
		project_id = :project_id
		WHERE id = :id`, &p)
	if err != nil {
		return nil, fmt.Errorf("update plot point: %w", err)
	}
	return s.GetPlotPoint(ctx, id)
}

func (s *Store) DeletePlotPoint(ctx context.Context, idOrPrefix string) error {
	return s.deleteRow(ctx, "plot_points", idOrPrefix)
}

// CompletedPlotPoints counts plot points marked completed
func (s *Store) CompletedPlotPoints(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM plot_points WHERE status = ?", domain.PlotCompleted)
	if err != nil {
		return 0, fmt.Errorf("count plot points: %w", err)
	}
	return n, nil
}

func normalizePlotPoint(p *domain.PlotPoint) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return fmt.Errorf("%w: plot point title is required", ErrInvalid)
	}
	if p.Status == "" {
		p.Status = domain.PlotPlanned
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: plot point status %q", ErrInvalid, p.Status)
	}
	if p.Order < 0 {
		return fmt.Errorf("%w: plot point order %d", ErrInvalid, p.Order)
	}
	return nil
}

// --- World elements ---

// CreateWorldElement inserts e with a fresh id. Type defaults to other.
func (s *Store) CreateWorldElement(ctx context.Context, e domain.WorldElement) (*domain.WorldElement, error) {
	if err := normalizeWorldElement(&e); err != nil {
		return nil, err
	}
	e.ID = s.newID()

	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO world_elements ("+worldColumns+") VALUES (:id, :name, :type, :description, :project_id)", &e)
	if err != nil {
		return nil, fmt.Errorf("insert world element: %w", err)
	}
	return &e, nil
}

func (s *Store) GetWorldElement(ctx context.Context, idOrPrefix string) (*domain.WorldElement, error) {
	id, err := s.resolveID(ctx, "world_elements", idOrPrefix)
	if err != nil {
		return nil, err
	}
	var e domain.WorldElement
	if err := getRow(ctx, s.db, &e, "world_elements", worldColumns, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListWorldElements returns matching elements by type, then name. The
// query matches names and descriptions.
func (s *Store) ListWorldElements(ctx context.Context, f domain.LoreFilter) ([]domain.WorldElement, error) {
	where, args := loreWhere(f, "name", "description")
	elems := []domain.WorldElement{}
	err := s.db.SelectContext(ctx, &elems,
		"SELECT "+worldColumns+" FROM world_elements"+where+" ORDER BY type, name COLLATE NOCASE, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list world elements: %w", err)
	}
	return elems, nil
}

func (s *Store) UpdateWorldElement(ctx context.Context, e domain.WorldElement) (*domain.WorldElement, error) {
	id, err := s.resolveID(ctx, "world_elements", e.ID)
	if err != nil {
		return nil, err
	}
	if err := normalizeWorldElement(&e); err != nil {
		return nil, err
	}
	e.ID = id

	_, err = s.db.NamedExecContext(ctx, `UPDATE world_elements SET
		name = :name, type = :type, description = :description, project_id = :project_id
		WHERE id = :id`, &e)
	if err != nil {
		return nil, fmt.Errorf("update world element: %w", err)
	}
	return s.GetWorldElement(ctx, id)
}

func (s *Store) DeleteWorldElement(ctx context.Context, idOrPrefix string) error {
	return s.deleteRow(ctx, "world_elements", idOrPrefix)
}

func normalizeWorldElement(e *domain.WorldElement) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return fmt.Errorf("%w: world element name is required", ErrInvalid)
	}
	e.Type = strings.TrimSpace(e.Type)
	if e.Type == "" {
		e.Type = "other"
	}
	return nil
}
