package dbgen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type DrawingRole string

const (
	DrawingRoleOwner  DrawingRole = "owner"
	DrawingRoleViewer DrawingRole = "viewer"
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   pgtype.Timestamptz
}

type Drawing struct {
	ID        string
	Name      string
	OwnerID   string
	Units     string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type DrawingMember struct {
	DrawingID string
	UserID    string
	Role      DrawingRole
	CreatedAt pgtype.Timestamptz
}

type DrawingSnapshot struct {
	ID        string
	DrawingID string
	Version   int32
	Document  []byte
	CreatedBy pgtype.Text
	CreatedAt pgtype.Timestamptz
}
