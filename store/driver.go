package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// Report model related methods.
	CreateReport(ctx context.Context, create *Report) (*Report, error)
	ListReports(ctx context.Context, find *FindReport) ([]*Report, error)
	UpdateReportEmbedding(ctx context.Context, update *UpdateReportEmbedding) error
	ListReportsWithoutEmbedding(ctx context.Context, version int, limit int) ([]*Report, error)
	DeleteReport(ctx context.Context, delete *DeleteReport) error
}
