package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/civiclens/civiclens/store"
)

// CreateReport inserts a report row.
func (d *DB) CreateReport(ctx context.Context, create *store.Report) (*store.Report, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	create.UpdatedTs = now

	stmt := `
		INSERT INTO report (
			id, title, category, description, location,
			latitude, longitude, embedding, embedding_version,
			created_ts, updated_ts, is_deleted
		)
		VALUES (` + placeholders(12) + `)
	`
	_, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.Title,
		create.Category,
		create.Description,
		create.Location,
		create.Latitude,
		create.Longitude,
		vectorOrNil(create.Embedding),
		create.EmbeddingVersion,
		create.CreatedTs,
		create.UpdatedTs,
		create.IsDeleted,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create report")
	}
	return create, nil
}

// ListReports lists reports matching the find condition, newest first.
func (d *DB) ListReports(ctx context.Context, find *store.FindReport) ([]*store.Report, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Category != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, *find.Category)
	}
	if find.ExcludeDeleted {
		where = append(where, "is_deleted = FALSE")
	}

	query := `
		SELECT
			id, title, category, description, location,
			latitude, longitude, embedding::text, embedding_version,
			created_ts, updated_ts, is_deleted
		FROM report
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reports")
	}
	defer rows.Close()

	list := []*store.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateReportEmbedding persists an embedding onto a report.
func (d *DB) UpdateReportEmbedding(ctx context.Context, update *store.UpdateReportEmbedding) error {
	stmt := `
		UPDATE report
		SET embedding = $1, embedding_version = $2, updated_ts = $3
		WHERE id = $4
	`
	result, err := d.db.ExecContext(ctx, stmt,
		vectorOrNil(update.Embedding),
		update.EmbeddingVersion,
		time.Now().Unix(),
		update.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update report embedding")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.Errorf("report not found: %s", update.ID)
	}
	return nil
}

// ListReportsWithoutEmbedding returns reports whose embedding is missing or
// computed with a different model version.
func (d *DB) ListReportsWithoutEmbedding(ctx context.Context, version int, limit int) ([]*store.Report, error) {
	query := `
		SELECT
			id, title, category, description, location,
			latitude, longitude, embedding::text, embedding_version,
			created_ts, updated_ts, is_deleted
		FROM report
		WHERE is_deleted = FALSE
			AND (embedding IS NULL OR embedding_version != $1)
		ORDER BY created_ts ASC
		LIMIT $2
	`
	rows, err := d.db.QueryContext(ctx, query, version, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reports without embedding")
	}
	defer rows.Close()

	list := []*store.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteReport soft-deletes a report.
func (d *DB) DeleteReport(ctx context.Context, delete *store.DeleteReport) error {
	stmt := `UPDATE report SET is_deleted = TRUE, updated_ts = $1 WHERE id = $2`
	if _, err := d.db.ExecContext(ctx, stmt, time.Now().Unix(), delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete report")
	}
	return nil
}

func scanReport(rows *sql.Rows) (*store.Report, error) {
	var report store.Report
	var embedding sql.NullString
	err := rows.Scan(
		&report.ID,
		&report.Title,
		&report.Category,
		&report.Description,
		&report.Location,
		&report.Latitude,
		&report.Longitude,
		&embedding,
		&report.EmbeddingVersion,
		&report.CreatedTs,
		&report.UpdatedTs,
		&report.IsDeleted,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan report")
	}

	if embedding.Valid {
		var vector pgvector.Vector
		if err := vector.Scan(embedding.String); err != nil {
			return nil, errors.Wrap(err, "failed to parse embedding vector")
		}
		report.Embedding = vector.Slice()
	}
	return &report, nil
}

// vectorOrNil converts an embedding into a pgvector value, keeping NULL for
// reports embedded later by the background runner.
func vectorOrNil(embedding []float32) any {
	if embedding == nil {
		return nil
	}
	return pgvector.NewVector(embedding)
}
