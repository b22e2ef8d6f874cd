package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// SQLiteRepository implements store.Store on a SQLite database. Row order is
// kept in the position column so indexes match the CSV backend.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens the database at dbPath and migrates it. A nil
// logger uses slog.Default.
func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ensure is satisfied by the migrations run at open time.
func (r *SQLiteRepository) Ensure(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) error {
	cells := e.Row()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (position, date, description, amount, category)
		 VALUES ((SELECT COALESCE(MAX(position), -1) + 1 FROM expenses), ?, ?, ?, ?)`,
		cells[0], cells[1], cells[2], cells[3])
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	// position is the INTEGER PRIMARY KEY, so the rowid is the row index.
	row, _ := res.LastInsertId()
	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		"row", row,
		"description", e.Description,
		"category", e.Category)
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (*store.Table, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, description, amount, category FROM expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	t := store.NewTable()
	for rows.Next() {
		var date, desc, amount, cat string
		if err := rows.Scan(&date, &desc, &amount, &cat); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		t.Rows = append(t.Rows, store.Row{date, desc, amount, cat})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return t, nil
}

// Rewrite replaces every row inside one transaction. Columns are mapped by
// name, so a table with a different header order is stored correctly.
func (r *SQLiteRepository) Rewrite(ctx context.Context, t *store.Table) error {
	schema := store.ResolveSchema(t.Header)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (position, date, description, amount, category) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, i,
			schema.Cell(row, store.FieldDate),
			schema.Cell(row, store.FieldDescription),
			schema.Cell(row, store.FieldAmount),
			schema.Cell(row, store.FieldCategory),
		); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rewrite: %w", err)
	}
	return nil
}
