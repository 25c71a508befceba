package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createSnapshot = `-- name: CreateSnapshot :one
INSERT INTO drawing_snapshots (id, drawing_id, version, document, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, drawing_id, version, document, created_by, created_at
`

type CreateSnapshotParams struct {
	ID        string
	DrawingID string
	Version   int32
	Document  []byte
	CreatedBy pgtype.Text
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (DrawingSnapshot, error) {
	row := q.db.QueryRow(ctx, createSnapshot,
		arg.ID,
		arg.DrawingID,
		arg.Version,
		arg.Document,
		arg.CreatedBy,
	)
	var i DrawingSnapshot
	err := row.Scan(
		&i.ID,
		&i.DrawingID,
		&i.Version,
		&i.Document,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const getLatestSnapshot = `-- name: GetLatestSnapshot :one
SELECT id, drawing_id, version, document, created_by, created_at FROM drawing_snapshots
WHERE drawing_id = $1
ORDER BY version DESC
LIMIT 1
`

func (q *Queries) GetLatestSnapshot(ctx context.Context, drawingID string) (DrawingSnapshot, error) {
	row := q.db.QueryRow(ctx, getLatestSnapshot, drawingID)
	var i DrawingSnapshot
	err := row.Scan(
		&i.ID,
		&i.DrawingID,
		&i.Version,
		&i.Document,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}
