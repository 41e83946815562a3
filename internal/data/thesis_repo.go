// Package data contains the PostgreSQL and Redis repositories backing the
// thesis export pipeline.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/titulapp/thesis-api/internal/data/pgxutil"
	"github.com/titulapp/thesis-api/internal/domain/model"
	apperrors "github.com/titulapp/thesis-api/internal/errors"
)

// ErrThesisNotFound is returned when a thesis is not found.
var ErrThesisNotFound = errors.New("thesis not found")

// storage_handle is nullable; coalesce so it scans into a plain string.
const thesisColumns = `id, name, COALESCE(storage_handle, '') AS storage_handle, legacy_url, created_at`

// ThesisRepo provides database operations for thesis records.
type ThesisRepo struct {
	DB *sql.DB
}

// NewThesisRepo creates a new ThesisRepo.
func NewThesisRepo(db *sql.DB) *ThesisRepo {
	return &ThesisRepo{DB: db}
}

// ListWithStorageHandle returns every thesis with a non-empty storage handle,
// ordered by creation time so export archives have a stable entry order.
func (r *ThesisRepo) ListWithStorageHandle(ctx context.Context) ([]model.ThesisRecord, error) {
	var out []model.ThesisRecord
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+thesisColumns+`
			FROM theses
			WHERE storage_handle IS NOT NULL AND storage_handle <> ''
			ORDER BY created_at, id
		`)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.ThesisRecord])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list theses with storage handle: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// GetByID retrieves a single thesis by ID.
func (r *ThesisRepo) GetByID(ctx context.Context, id string) (*model.ThesisRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("thesis id is required and cannot be empty")
	}

	var out model.ThesisRecord
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+thesisColumns+`
			FROM theses
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.ThesisRecord])
		return err
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrThesisNotFound
		}
		return nil, fmt.Errorf("get thesis by id: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Insert stores a new thesis record. Used by development seeding and file
// registration.
func (r *ThesisRepo) Insert(ctx context.Context, rec model.ThesisRecord) error {
	// Records without any file reference are persistable, just not exportable.
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("thesis id is required and cannot be empty")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return errors.New("thesis name is required and cannot be empty")
	}

	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO theses (id, name, storage_handle, legacy_url)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, rec.ID, rec.Name, nullIfEmpty(rec.StorageHandle), rec.LegacyURL)
		if err != nil {
			return fmt.Errorf("insert thesis: %w", apperrors.MapDBError(err))
		}
		return nil
	})
}

func nullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// SetStorageHandle records the gateway handle for an uploaded thesis file.
func (r *ThesisRepo) SetStorageHandle(ctx context.Context, id, handle string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("thesis id is required and cannot be empty")
	}

	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE theses SET storage_handle = $2 WHERE id = $1
		`, id, handle)
		if err != nil {
			return fmt.Errorf("set storage handle: %w", apperrors.MapDBError(err))
		}
		if tag.RowsAffected() == 0 {
			return ErrThesisNotFound
		}
		return nil
	})
}
