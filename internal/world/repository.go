package world

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PlacedBlock is a persisted block placement.
type PlacedBlock struct {
	Pos       BlockPos  `json:"pos"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlockRepository persists blocks placed outside the stove lifecycle, so
// obstructions survive a restart.
type BlockRepository interface {
	List(ctx context.Context) ([]PlacedBlock, error)
	// Put stores name at pos. Air deletes the row.
	Put(ctx context.Context, pos BlockPos, name string) error
}

// SQLiteBlockRepository implements BlockRepository over the blocks table.
type SQLiteBlockRepository struct {
	db *sql.DB
}

// NewSQLiteBlockRepository creates a block repository backed by db.
func NewSQLiteBlockRepository(db *sql.DB) *SQLiteBlockRepository {
	return &SQLiteBlockRepository{db: db}
}

// List returns every stored block ordered by position.
func (r *SQLiteBlockRepository) List(ctx context.Context) ([]PlacedBlock, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT x, y, z, name, updated_at FROM blocks ORDER BY x, y, z`)
	if err != nil {
		return nil, fmt.Errorf("querying blocks: %w", err)
	}
	defer rows.Close()

	var blocks []PlacedBlock
	for rows.Next() {
		var (
			b       PlacedBlock
			updated string
		)
		if err := rows.Scan(&b.Pos.X, &b.Pos.Y, &b.Pos.Z, &b.Name, &updated); err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		b.UpdatedAt, _ = time.Parse(time.RFC3339, updated) //nolint:errcheck // zero time on legacy rows
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blocks: %w", err)
	}
	return blocks, nil
}

// Put upserts the block at pos, or deletes it when name is air.
func (r *SQLiteBlockRepository) Put(ctx context.Context, pos BlockPos, name string) error {
	if name == "" || name == BlockAir {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM blocks WHERE x = ? AND y = ? AND z = ?`, pos.X, pos.Y, pos.Z); err != nil {
			return fmt.Errorf("deleting block %s: %w", pos, err)
		}
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blocks (x, y, z, name, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (x, y, z) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		pos.X, pos.Y, pos.Z, name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing block %s: %w", pos, err)
	}
	return nil
}

// Restore loads every stored block into w and returns how many were placed.
func Restore(ctx context.Context, w *World, repo BlockRepository) (int, error) {
	blocks, err := repo.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range blocks {
		w.SetBlock(b.Pos, b.Name)
	}
	return len(blocks), nil
}
