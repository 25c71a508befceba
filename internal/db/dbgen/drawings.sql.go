package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createDrawing = `-- name: CreateDrawing :one
INSERT INTO drawings (id, name, owner_id, units)
VALUES ($1, $2, $3, $4)
RETURNING id, name, owner_id, units, created_at, updated_at
`

type CreateDrawingParams struct {
	ID      string
	Name    string
	OwnerID string
	Units   string
}

func (q *Queries) CreateDrawing(ctx context.Context, arg CreateDrawingParams) (Drawing, error) {
	row := q.db.QueryRow(ctx, createDrawing,
		arg.ID,
		arg.Name,
		arg.OwnerID,
		arg.Units,
	)
	var i Drawing
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.OwnerID,
		&i.Units,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getDrawing = `-- name: GetDrawing :one
SELECT id, name, owner_id, units, created_at, updated_at FROM drawings
WHERE id = $1
`

func (q *Queries) GetDrawing(ctx context.Context, id string) (Drawing, error) {
	row := q.db.QueryRow(ctx, getDrawing, id)
	var i Drawing
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.OwnerID,
		&i.Units,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listDrawingsForUser = `-- name: ListDrawingsForUser :many
SELECT d.id, d.name, d.owner_id, d.units, d.created_at, d.updated_at FROM drawings d
JOIN drawing_members m ON m.drawing_id = d.id
WHERE m.user_id = $1
ORDER BY d.updated_at DESC
`

func (q *Queries) ListDrawingsForUser(ctx context.Context, userID string) ([]Drawing, error) {
	rows, err := q.db.Query(ctx, listDrawingsForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Drawing
	for rows.Next() {
		var i Drawing
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.OwnerID,
			&i.Units,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const touchDrawing = `-- name: TouchDrawing :exec
UPDATE drawings SET updated_at = now()
WHERE id = $1
`

func (q *Queries) TouchDrawing(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, touchDrawing, id)
	return err
}

const deleteDrawing = `-- name: DeleteDrawing :exec
DELETE FROM drawings
WHERE id = $1
`

func (q *Queries) DeleteDrawing(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteDrawing, id)
	return err
}

const addDrawingMember = `-- name: AddDrawingMember :exec
INSERT INTO drawing_members (drawing_id, user_id, role)
VALUES ($1, $2, $3)
ON CONFLICT (drawing_id, user_id) DO NOTHING
`

type AddDrawingMemberParams struct {
	DrawingID string
	UserID    string
	Role      DrawingRole
}

func (q *Queries) AddDrawingMember(ctx context.Context, arg AddDrawingMemberParams) error {
	_, err := q.db.Exec(ctx, addDrawingMember, arg.DrawingID, arg.UserID, arg.Role)
	return err
}

const getDrawingMember = `-- name: GetDrawingMember :one
SELECT drawing_id, user_id, role, created_at FROM drawing_members
WHERE drawing_id = $1 AND user_id = $2
`

type GetDrawingMemberParams struct {
	DrawingID string
	UserID    string
}

func (q *Queries) GetDrawingMember(ctx context.Context, arg GetDrawingMemberParams) (DrawingMember, error) {
	row := q.db.QueryRow(ctx, getDrawingMember, arg.DrawingID, arg.UserID)
	var i DrawingMember
	err := row.Scan(
		&i.DrawingID,
		&i.UserID,
		&i.Role,
		&i.CreatedAt,
	)
	return i, err
}

const listDrawingMembers = `-- name: ListDrawingMembers :many
SELECT m.user_id, m.role, m.created_at, u.display_name, u.email FROM drawing_members m
JOIN users u ON u.id = m.user_id
WHERE m.drawing_id = $1
ORDER BY m.created_at
`

type ListDrawingMembersRow struct {
	UserID      string
	Role        DrawingRole
	CreatedAt   pgtype.Timestamptz
	DisplayName string
	Email       string
}

func (q *Queries) ListDrawingMembers(ctx context.Context, drawingID string) ([]ListDrawingMembersRow, error) {
	rows, err := q.db.Query(ctx, listDrawingMembers, drawingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListDrawingMembersRow
	for rows.Next() {
		var i ListDrawingMembersRow
		if err := rows.Scan(
			&i.UserID,
			&i.Role,
			&i.CreatedAt,
			&i.DisplayName,
			&i.Email,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const removeDrawingMember = `-- name: RemoveDrawingMember :exec
DELETE FROM drawing_members
WHERE drawing_id = $1 AND user_id = $2
`

type RemoveDrawingMemberParams struct {
	DrawingID string
	UserID    string
}

func (q *Queries) RemoveDrawingMember(ctx context.Context, arg RemoveDrawingMemberParams) error {
	_, err := q.db.Exec(ctx, removeDrawingMember, arg.DrawingID, arg.UserID)
	return err
}
