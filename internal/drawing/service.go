package drawing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/inamate/draftview/internal/asset"
	"github.com/inamate/draftview/internal/auth"
	"github.com/inamate/draftview/internal/db/dbgen"
	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
	"github.com/inamate/draftview/internal/raster"
	"github.com/inamate/draftview/internal/typeid"
)

var (
	ErrNotFound          = errors.New("drawing not found")
	ErrForbidden         = errors.New("forbidden")
	ErrNotMember         = errors.New("not a drawing member")
	ErrUserNotFound      = errors.New("user not found")
	ErrCannotRemoveOwner = errors.New("cannot remove drawing owner")
	ErrInvalidDocument   = errors.New("invalid document")
)

const timeLayout = "2006-01-02T15:04:05Z"

// Store is the persistence the drawing service needs. *dbgen.Queries satisfies it.
type Store interface {
	CreateDrawing(ctx context.Context, arg dbgen.CreateDrawingParams) (dbgen.Drawing, error)
	GetDrawing(ctx context.Context, id string) (dbgen.Drawing, error)
	ListDrawingsForUser(ctx context.Context, userID string) ([]dbgen.Drawing, error)
	TouchDrawing(ctx context.Context, id string) error
	DeleteDrawing(ctx context.Context, id string) error
	AddDrawingMember(ctx context.Context, arg dbgen.AddDrawingMemberParams) error
	GetDrawingMember(ctx context.Context, arg dbgen.GetDrawingMemberParams) (dbgen.DrawingMember, error)
	ListDrawingMembers(ctx context.Context, drawingID string) ([]dbgen.ListDrawingMembersRow, error)
	RemoveDrawingMember(ctx context.Context, arg dbgen.RemoveDrawingMemberParams) error
	CreateSnapshot(ctx context.Context, arg dbgen.CreateSnapshotParams) (dbgen.DrawingSnapshot, error)
	GetLatestSnapshot(ctx context.Context, drawingID string) (dbgen.DrawingSnapshot, error)
	GetUserByEmail(ctx context.Context, email string) (dbgen.User, error)
}

// ThumbnailCache stores rendered thumbnails by key. *asset.Handler satisfies it.
type ThumbnailCache interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
}

// PublishFunc is called after a new snapshot has been stored.
type PublishFunc func(drawingID string, version int32, doc *document.Document)

type Service struct {
	store   Store
	thumbs  ThumbnailCache
	render  raster.Options
	publish PublishFunc
}

// NewService creates a drawing service. render supplies the background, font and
// engine tunables for thumbnails.
func NewService(store Store, thumbs ThumbnailCache, render raster.Options) *Service {
	return &Service{store: store, thumbs: thumbs, render: render}
}

// OnPublish registers fn to be told about every uploaded snapshot.
func (s *Service) OnPublish(fn PublishFunc) {
	s.publish = fn
}

type Drawing struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	Units     string `json:"units"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type Snapshot struct {
	ID        string          `json:"id"`
	Version   int32           `json:"version"`
	CreatedAt string          `json:"createdAt"`
	Document  json.RawMessage `json:"document,omitempty"`
}

// Extent describes the bounds of one space of the latest snapshot.
type Extent struct {
	Version  int32                 `json:"version"`
	Space    document.Space        `json:"space"`
	Bounds   geom.BoundingBox      `json:"bounds"`
	Entities int                   `json:"entities"`
	Kinds    map[document.Kind]int `json:"kinds"`
}

func (s *Service) Create(ctx context.Context, name, units, ownerID string) (*Drawing, error) {
	drawingID := typeid.NewDrawingID()
	if units == "" {
		units = "mm"
	}

	dbDrawing, err := s.store.CreateDrawing(ctx, dbgen.CreateDrawingParams{
		ID:      drawingID,
		Name:    name,
		OwnerID: ownerID,
		Units:   units,
	})
	if err != nil {
		return nil, fmt.Errorf("create drawing: %w", err)
	}

	err = s.store.AddDrawingMember(ctx, dbgen.AddDrawingMemberParams{
		DrawingID: drawingID,
		UserID:    ownerID,
		Role:      dbgen.DrawingRoleOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	// Seed empty document snapshot
	emptyDoc := document.New(drawingID, name)
	emptyDoc.Units = units
	docJSON, err := document.Marshal(emptyDoc)
	if err != nil {
		return nil, fmt.Errorf("marshal empty document: %w", err)
	}

	_, err = s.store.CreateSnapshot(ctx, dbgen.CreateSnapshotParams{
		ID:        typeid.NewSnapshotID(),
		DrawingID: drawingID,
		Version:   1,
		Document:  docJSON,
		CreatedBy: pgtype.Text{String: ownerID, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return toDrawing(dbDrawing), nil
}

func (s *Service) Get(ctx context.Context, drawingID, userID string) (*Drawing, error) {
	if _, err := s.checkMembership(ctx, drawingID, userID); err != nil {
		return nil, err
	}

	dbDrawing, err := s.getDrawing(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	return toDrawing(dbDrawing), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Drawing, error) {
	dbDrawings, err := s.store.ListDrawingsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}

	drawings := make([]Drawing, len(dbDrawings))
	for i, d := range dbDrawings {
		drawings[i] = *toDrawing(d)
	}
	return drawings, nil
}

func (s *Service) Delete(ctx context.Context, drawingID, userID string) error {
	if err := s.requireOwner(ctx, drawingID, userID); err != nil {
		return err
	}
	return s.store.DeleteDrawing(ctx, drawingID)
}

func (s *Service) InviteByEmail(ctx context.Context, drawingID, ownerID, inviteeEmail string) error {
	if err := s.requireOwner(ctx, drawingID, ownerID); err != nil {
		return err
	}

	invitee, err := s.store.GetUserByEmail(ctx, auth.NormalizeEmail(inviteeEmail))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	return s.store.AddDrawingMember(ctx, dbgen.AddDrawingMemberParams{
		DrawingID: drawingID,
		UserID:    invitee.ID,
		Role:      dbgen.DrawingRoleViewer,
	})
}

func (s *Service) ListMembers(ctx context.Context, drawingID, userID string) ([]Member, error) {
	if _, err := s.checkMembership(ctx, drawingID, userID); err != nil {
		return nil, err
	}

	dbMembers, err := s.store.ListDrawingMembers(ctx, drawingID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(dbMembers))
	for i, m := range dbMembers {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, drawingID, ownerID, targetUserID string) error {
	if err := s.requireOwner(ctx, drawingID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return ErrCannotRemoveOwner
	}

	return s.store.RemoveDrawingMember(ctx, dbgen.RemoveDrawingMemberParams{
		DrawingID: drawingID,
		UserID:    targetUserID,
	})
}

// LatestSnapshot returns the newest snapshot including its document.
func (s *Service) LatestSnapshot(ctx context.Context, drawingID, userID string) (*Snapshot, error) {
	if _, err := s.checkMembership(ctx, drawingID, userID); err != nil {
		return nil, err
	}

	snap, err := s.latest(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ID:        snap.ID,
		Version:   snap.Version,
		CreatedAt: snap.CreatedAt.Time.Format(timeLayout),
		Document:  snap.Document,
	}, nil
}

// UploadSnapshot stores data as the next immutable version. Only owners may
// publish. The document is decoded first and stored in normalised form.
func (s *Service) UploadSnapshot(ctx context.Context, drawingID, userID string, data []byte) (*Snapshot, error) {
	role, err := s.checkMembership(ctx, drawingID, userID)
	if err != nil {
		return nil, err
	}
	if role != dbgen.DrawingRoleOwner {
		return nil, ErrForbidden
	}

	doc, err := document.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.CheckExpansion(s.render.Engine.EntityBudget()); err != nil {
		return nil, err
	}
	doc.ID = drawingID
	normalized, err := document.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	version := int32(1)
	prev, err := s.store.GetLatestSnapshot(ctx, drawingID)
	switch {
	case err == nil:
		version = prev.Version + 1
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	snap, err := s.store.CreateSnapshot(ctx, dbgen.CreateSnapshotParams{
		ID:        typeid.NewSnapshotID(),
		DrawingID: drawingID,
		Version:   version,
		Document:  normalized,
		CreatedBy: pgtype.Text{String: userID, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	if err := s.store.TouchDrawing(ctx, drawingID); err != nil {
		slog.Warn("touch drawing failed", "drawing", drawingID, "error", err)
	}

	slog.Info("snapshot published", "drawing", drawingID, "version", version, "entities", len(doc.ModelSpace))
	if s.publish != nil {
		s.publish(drawingID, version, doc)
	}

	return &Snapshot{ID: snap.ID, Version: snap.Version, CreatedAt: snap.CreatedAt.Time.Format(timeLayout)}, nil
}

// LoadDocument returns the latest document of a drawing without an access
// check. It backs live sessions, which check membership on connect.
func (s *Service) LoadDocument(ctx context.Context, drawingID string) (*document.Document, int32, error) {
	snap, err := s.latest(ctx, drawingID)
	if err != nil {
		return nil, 0, err
	}
	doc, err := document.Unmarshal(snap.Document)
	if err != nil {
		return nil, 0, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return doc, snap.Version, nil
}

// Bounds computes the extent of one space of the latest snapshot.
func (s *Service) Bounds(ctx context.Context, drawingID, userID string, space document.Space) (*Extent, error) {
	if _, err := s.checkMembership(ctx, drawingID, userID); err != nil {
		return nil, err
	}
	doc, version, err := s.LoadDocument(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	if space != document.PaperSpace {
		space = document.ModelSpace
	}

	entities := doc.Entities(space)
	kinds := make(map[document.Kind]int)
	for _, e := range entities {
		if e != nil {
			kinds[e.Kind()]++
		}
	}
	return &Extent{
		Version:  version,
		Space:    space,
		Bounds:   engine.ComputeBounds(entities),
		Entities: len(entities),
		Kinds:    kinds,
	}, nil
}

// Thumbnail renders the latest snapshot at width x height, caching the PNG by
// snapshot so later requests skip the render.
func (s *Service) Thumbnail(ctx context.Context, drawingID, userID string, width, height int) ([]byte, error) {
	if _, err := s.checkMembership(ctx, drawingID, userID); err != nil {
		return nil, err
	}
	snap, err := s.latest(ctx, drawingID)
	if err != nil {
		return nil, err
	}

	key := asset.Key(snap.ID, width, height)
	if s.thumbs != nil {
		data, err := s.thumbs.Get(key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, asset.ErrNotCached) {
			slog.Warn("thumbnail cache read failed", "key", key, "error", err)
		}
	}

	doc, err := document.Unmarshal(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	opts := s.render
	opts.Width, opts.Height = width, height
	opts.LOD = true
	data, res, err := raster.PNG(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("render thumbnail: %w", err)
	}
	slog.Debug("thumbnail rendered", "drawing", drawingID, "snapshot", snap.ID, "drawn", res.Stats.Drawn)

	if s.thumbs != nil {
		if err := s.thumbs.Put(key, data); err != nil {
			slog.Warn("thumbnail cache write failed", "key", key, "error", err)
		}
	}
	return data, nil
}

// Role reports the caller's role, or ErrNotMember.
func (s *Service) Role(ctx context.Context, drawingID, userID string) (dbgen.DrawingRole, error) {
	return s.checkMembership(ctx, drawingID, userID)
}

func (s *Service) checkMembership(ctx context.Context, drawingID, userID string) (dbgen.DrawingRole, error) {
	m, err := s.store.GetDrawingMember(ctx, dbgen.GetDrawingMemberParams{
		DrawingID: drawingID,
		UserID:    userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("check membership: %w", err)
	}
	return m.Role, nil
}

func (s *Service) requireOwner(ctx context.Context, drawingID, userID string) error {
	d, err := s.getDrawing(ctx, drawingID)
	if err != nil {
		return err
	}
	if d.OwnerID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) getDrawing(ctx context.Context, drawingID string) (dbgen.Drawing, error) {
	d, err := s.store.GetDrawing(ctx, drawingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return d, ErrNotFound
		}
		return d, fmt.Errorf("get drawing: %w", err)
	}
	return d, nil
}

func (s *Service) latest(ctx context.Context, drawingID string) (dbgen.DrawingSnapshot, error) {
	snap, err := s.store.GetLatestSnapshot(ctx, drawingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snap, ErrNotFound
		}
		return snap, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func toDrawing(d dbgen.Drawing) *Drawing {
	return &Drawing{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		Units:     d.Units,
		CreatedAt: d.CreatedAt.Time.Format(timeLayout),
		UpdatedAt: d.UpdatedAt.Time.Format(timeLayout),
	}
}
