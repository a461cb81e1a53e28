package stove

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-hearth/internal/world"
)

// Stored is a stove as persisted: placement, block state and record.
type Stored struct {
	ID        string
	Pos       world.BlockPos
	Facing    world.Facing
	Lit       bool
	Record    Record
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines the interface for stove persistence operations.
type Repository interface {
	// GetByID retrieves a stove by its identifier.
	// Returns ErrStoveNotFound if the stove does not exist.
	GetByID(ctx context.Context, id string) (*Stored, error)

	// List retrieves all stoves ordered by ID.
	List(ctx context.Context) ([]Stored, error)

	// Create inserts a new stove.
	// Returns ErrStoveExists if the ID or position is already taken.
	Create(ctx context.Context, s *Stored) error

	// Save writes the block state and record of an existing stove.
	// Returns ErrStoveNotFound if the stove does not exist.
	Save(ctx context.Context, s *Stored) error

	// Delete removes a stove by ID.
	// Returns ErrStoveNotFound if the stove does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectStoves = `
	SELECT id, x, y, z, facing, lit, record, created_at, updated_at
	FROM stoves`

// GetByID retrieves a stove by its identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Stored, error) {
	row := r.db.QueryRowContext(ctx, selectStoves+" WHERE id = ?", id)
	s, err := scanStored(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoveNotFound
		}
		return nil, fmt.Errorf("querying stove by id: %w", err)
	}
	return s, nil
}

// List retrieves all stoves ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Stored, error) {
	rows, err := r.db.QueryContext(ctx, selectStoves+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying stoves: %w", err)
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		s, err := scanStored(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stove: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stoves: %w", err)
	}
	return out, nil
}

// Create inserts a new stove.
func (r *SQLiteRepository) Create(ctx context.Context, s *Stored) error {
	record, err := recordOrEmpty(s.Record)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO stoves (id, x, y, z, facing, lit, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.Pos.X, s.Pos.Y, s.Pos.Z,
		s.Facing.String(),
		boolToInt(s.Lit),
		string(record),
		s.CreatedAt.Format(time.RFC3339),
		s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrStoveExists
		}
		return fmt.Errorf("inserting stove: %w", err)
	}
	return nil
}

// Save writes the block state and record of an existing stove.
func (r *SQLiteRepository) Save(ctx context.Context, s *Stored) error {
	record, err := recordOrEmpty(s.Record)
	if err != nil {
		return err
	}

	s.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE stoves
		SET facing = ?, lit = ?, record = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		s.Facing.String(),
		boolToInt(s.Lit),
		string(record),
		s.UpdatedAt.Format(time.RFC3339),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating stove: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrStoveNotFound
	}
	return nil
}

// Delete removes a stove by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM stoves WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting stove: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrStoveNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStored(row rowScanner) (*Stored, error) {
	var (
		s                    Stored
		facing, record       string
		lit                  int
		createdAt, updatedAt string
	)
	if err := row.Scan(&s.ID, &s.Pos.X, &s.Pos.Y, &s.Pos.Z, &facing, &lit, &record, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	f, err := world.ParseFacing(facing)
	if err != nil {
		return nil, fmt.Errorf("stove %s: %w", s.ID, err)
	}
	s.Facing = f
	s.Lit = lit != 0

	// A corrupt record column loads as an empty stove rather than hiding the row.
	if rec, err := ParseRecord([]byte(record)); err == nil {
		s.Record = rec
	} else {
		s.Record = Record{}
	}

	if s.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &s, nil
}

func recordOrEmpty(rec Record) ([]byte, error) {
	if rec == nil {
		return []byte("{}"), nil
	}
	return rec.Bytes()
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
