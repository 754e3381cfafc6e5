package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billlzzz10/unicornxos/internal/domain"
	"github.com/billlzzz10/unicornxos/internal/markdown"
)

const noteColumns = "id, title, content, category, status, project_id, character_count, created_at, updated_at"

// CreateNote inserts n with a fresh id and timestamps and returns it.
// An empty title becomes domain.DefaultNoteTitle, an empty status draft.
func (s *Store) CreateNote(ctx context.Context, n domain.Note) (*domain.Note, error) {
	if err := normalizeNote(&n); err != nil {
		return nil, err
	}
	now := s.now()
	n.ID = s.newID()
	n.CreatedAt = now
	n.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx,
		"INSERT INTO notes ("+noteColumns+") VALUES (:id, :title, :content, :category, :status, :project_id, :character_count, :created_at, :updated_at)",
		&n,
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return &n, nil
}

// GetNote retrieves a note by id or unique id prefix
func (s *Store) GetNote(ctx context.Context, idOrPrefix string) (*domain.Note, error) {
	id, err := s.resolveID(ctx, "notes", idOrPrefix)
	if err != nil {
		return nil, err
	}

	var n domain.Note
	err = s.db.GetContext(ctx, &n, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &n, nil
}

// ListNotes returns notes, most recently updated first
func (s *Store) ListNotes(ctx context.Context, f domain.NoteFilter) ([]domain.Note, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, f.ProjectID)
	}

	q := "SELECT " + noteColumns + " FROM notes"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY updated_at DESC, id"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	notes := []domain.Note{}
	if err := s.db.SelectContext(ctx, &notes, q, args...); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// SearchNotes performs a simple text search over titles and content
func (s *Store) SearchNotes(ctx context.Context, query string) ([]domain.Note, error) {
	pattern := "%" + escapeLike(query) + "%"
	notes := []domain.Note{}
	err := s.db.SelectContext(ctx, &notes,
		"SELECT "+noteColumns+` FROM notes
		WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, id`,
		pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return notes, nil
}

// UpdateNote overwrites the editable fields of the note identified by
// n.ID (or a unique prefix of it) and bumps updated_at
func (s *Store) UpdateNote(ctx context.Context, n domain.Note) (*domain.Note, error) {
	id, err := s.resolveID(ctx, "notes", n.ID)
	if err != nil {
		return nil, err
	}
	if err := normalizeNote(&n); err != nil {
		return nil, err
	}
	n.ID = id
	n.UpdatedAt = s.now()

	_, err = s.db.NamedExecContext(ctx, `UPDATE notes SET
		title = :title, content = :content, category = :category, status = :status,
		project_id = :project_id, character_count = :character_count, updated_at = :updated_at
		WHERE id = :id`, &n)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return s.GetNote(ctx, id)
}

// DeleteNote removes a note by id or unique id prefix
func (s *Store) DeleteNote(ctx context.Context, idOrPrefix string) error {
	id, err := s.resolveID(ctx, "notes", idOrPrefix)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// TotalCharacters sums the character count of every note
func (s *Store) TotalCharacters(ctx context.Context) (int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(character_count), 0) FROM notes"); err != nil {
		return 0, fmt.Errorf("sum characters: %w", err)
	}
	return total, nil
}

// CharactersUpdatedSince sums the character count of notes updated at or
// after since
func (s *Store) CharactersUpdatedSince(ctx context.Context, since time.Time) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(character_count), 0) FROM notes WHERE updated_at >= ?", since.UTC())
	if err != nil {
		return 0, fmt.Errorf("sum characters: %w", err)
	}
	return total, nil
}

func normalizeNote(n *domain.Note) error {
	if strings.TrimSpace(n.Title) == "" {
		n.Title = domain.DefaultNoteTitle
	}
	if n.Status == "" {
		n.Status = domain.NoteDraft
	}
	if !n.Status.Valid() {
		return fmt.Errorf("%w: note status %q", ErrInvalid, n.Status)
	}
	if !domain.ValidCategory(n.Category) {
		return fmt.Errorf("%w: note category %q", ErrInvalid, n.Category)
	}
	n.CharacterCount = markdown.CharacterCount(n.Content)
	return nil
}
