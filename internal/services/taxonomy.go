package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// TaxonomyService manages one kind of label, categories or tags.
type TaxonomyService struct {
	store *storage.Store
	kind  core.LabelKind
	now   func() time.Time
}

func NewTaxonomyService(store *storage.Store, kind core.LabelKind) *TaxonomyService {
	return &TaxonomyService{store: store, kind: kind, now: time.Now}
}

func (s *TaxonomyService) Kind() core.LabelKind {
	return s.kind
}

func (s *TaxonomyService) List(ctx context.Context, userID string, f storage.LabelFilter) ([]core.Label, error) {
	return s.store.ListLabels(ctx, s.kind, userID, f)
}

func (s *TaxonomyService) Get(ctx context.Context, id, userID string) (core.Label, error) {
	return s.store.GetLabel(ctx, s.kind, id, userID)
}

func (s *TaxonomyService) Create(ctx context.Context, userID string, in core.LabelInput) (core.Label, error) {
	in = s.normalize(in)
	if err := in.Validate(); err != nil {
		return core.Label{}, err
	}
	if err := s.checkName(ctx, userID, in.Name, ""); err != nil {
		return core.Label{}, err
	}

	now := s.now().UTC()
	l := core.Label{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      s.kind,
		Name:      in.Name,
		Icon:      in.Icon,
		Color:     in.Color,
		IsVisible: in.IsVisible,
		State:     core.StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertLabel(ctx, l); err != nil {
		return core.Label{}, err
	}
	return s.store.GetLabel(ctx, s.kind, l.ID, userID)
}

// Update rewrites name, icon, color and visibility. It never changes the
// archival state.
func (s *TaxonomyService) Update(ctx context.Context, id, userID string, in core.LabelInput) (core.Label, error) {
	current, err := s.store.GetLabel(ctx, s.kind, id, userID)
	if err != nil {
		return core.Label{}, err
	}
	in = s.normalize(in)
	if err := in.Validate(); err != nil {
		return core.Label{}, err
	}
	if err := s.checkName(ctx, userID, in.Name, id); err != nil {
		return core.Label{}, err
	}

	l := current
	l.Name = in.Name
	l.Icon = in.Icon
	l.Color = in.Color
	l.IsVisible = in.IsVisible
	l.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateLabel(ctx, l); err != nil {
		return core.Label{}, err
	}
	return s.store.GetLabel(ctx, s.kind, id, userID)
}

// Archive retires the label. Transactions keep referencing it, but it can no
// longer be newly assigned. Archiving twice is a no-op.
func (s *TaxonomyService) Archive(ctx context.Context, id, userID string) error {
	l, err := s.store.GetLabel(ctx, s.kind, id, userID)
	if err != nil {
		return err
	}
	if l.IsArchived() {
		return nil
	}
	l.State = core.StateArchived
	l.UpdatedAt = s.now().UTC()
	return s.store.UpdateLabel(ctx, l)
}

func (s *TaxonomyService) normalize(in core.LabelInput) core.LabelInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = s.kind.DefaultColor()
	}
	return in
}

func (s *TaxonomyService) checkName(ctx context.Context, userID, name, excludeID string) error {
	taken, err := s.store.LabelNameTaken(ctx, s.kind, userID, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return &core.ConflictError{Resource: string(s.kind), Field: "name"}
	}
	return nil
}
