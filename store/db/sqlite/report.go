package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"strings"
	"time"

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
		encodeVector(create.Embedding),
		create.EmbeddingVersion,
		create.CreatedTs,
		create.UpdatedTs,
		boolToInt(create.IsDeleted),
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
		where = append(where, "is_deleted = 0")
	}

	query := `
		SELECT
			id, title, category, description, location,
			latitude, longitude, embedding, embedding_version,
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
		SET embedding = ?, embedding_version = ?, updated_ts = ?
		WHERE id = ?
	`
	result, err := d.db.ExecContext(ctx, stmt,
		encodeVector(update.Embedding),
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
			latitude, longitude, embedding, embedding_version,
			created_ts, updated_ts, is_deleted
		FROM report
		WHERE is_deleted = 0
			AND (embedding IS NULL OR embedding_version != ?)
		ORDER BY created_ts ASC
		LIMIT ?
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
	stmt := `UPDATE report SET is_deleted = 1, updated_ts = ? WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, time.Now().Unix(), delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete report")
	}
	return nil
}

func scanReport(rows *sql.Rows) (*store.Report, error) {
	var report store.Report
	var embedding []byte
	var isDeleted int
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
		&isDeleted,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan report")
	}
	report.Embedding = decodeVector(embedding)
	report.IsDeleted = isDeleted != 0
	return &report, nil
}

// encodeVector packs a float32 vector as a little-endian blob. SQLite has no
// vector type; the blob round-trips exactly.
func encodeVector(vector []float32) []byte {
	if vector == nil {
		return nil
	}
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
