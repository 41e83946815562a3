// Package devseed inserts sample thesis records for local development, so the
// export flow can be exercised against a fresh database.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/titulapp/thesis-api/internal/data"
	"github.com/titulapp/thesis-api/internal/domain/model"
)

// seedTheses are the development fixtures. Two carry storage handles and are
// export-eligible; one has only a legacy URL and one has neither, which keeps
// the eligibility filter observable in dev.
func seedTheses() []model.ThesisRecord {
	legacy := "https://legacy.titulapp.example/files/antiguo-trabajo.pdf"
	return []model.ThesisRecord{
		{ID: uuid.NewString(), Name: "Sistemas distribuidos tolerantes a fallos", StorageHandle: "dev-handle-1"},
		{ID: uuid.NewString(), Name: "Compresión de series temporales", StorageHandle: "dev-handle-2"},
		{ID: uuid.NewString(), Name: "Archivo histórico digitalizado", LegacyURL: &legacy},
		{ID: uuid.NewString(), Name: "Borrador sin archivo"},
	}
}

// Run seeds sample theses when the table is empty. It is idempotent and only
// intended for development databases.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "devseed")

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM theses`).Scan(&count); err != nil {
		return fmt.Errorf("count theses: %w", err)
	}
	if count > 0 {
		logger.InfoContext(ctx, "theses already present, skipping seed", "count", count)
		return nil
	}

	repo := data.NewThesisRepo(db)
	for _, rec := range seedTheses() {
		if err := repo.Insert(ctx, rec); err != nil {
			return fmt.Errorf("seed thesis %q: %w", rec.Name, err)
		}
	}

	logger.InfoContext(ctx, "seeded development theses", "count", len(seedTheses()))
	return nil
}
