package crud_test

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/tenantcore/internal/store"
	"github.com/kiranshivaraju/tenantcore/pkg/pagination"
)

type widget struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenantId"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"-"`
}

type createWidget struct {
	Name string `json:"name"`
}

func (c createWidget) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type updateWidget struct {
	Name *string `json:"name,omitempty"`
}

func (u updateWidget) Validate() error {
	if u.Name != nil && *u.Name == "" {
		return errors.New("name must not be empty")
	}
	return nil
}

// memTable is an in-memory crud.Table that records write calls.
type memTable struct {
	rows map[uuid.UUID]*widget

	inserts, patches, deletes int
	err                       error
}

func newMemTable() *memTable {
	return &memTable{rows: map[uuid.UUID]*widget{}}
}

func (m *memTable) seed(tenantID uuid.UUID, name string) widget {
	w := &widget{ID: uuid.New(), TenantID: tenantID, Name: name}
	m.rows[w.ID] = w
	return *w
}

func (m *memTable) live(id, tenantID uuid.UUID) (*widget, bool) {
	w, ok := m.rows[id]
	if !ok || w.TenantID != tenantID || w.DeletedAt != nil {
		return nil, false
	}
	return w, true
}

func (m *memTable) Select(_ context.Context, id, tenantID uuid.UUID) (widget, error) {
	if m.err != nil {
		return widget{}, m.err
	}
	w, ok := m.live(id, tenantID)
	if !ok {
		return widget{}, store.ErrNotFound
	}
	return *w, nil
}

func (m *memTable) List(_ context.Context, tenantID uuid.UUID, opts pagination.Options) ([]widget, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var all []widget
	for _, w := range m.rows {
		if w.TenantID == tenantID && w.DeletedAt == nil {
			all = append(all, *w)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	start := min(opts.Offset(), total)
	end := min(start+opts.Limit(), total)
	return all[start:end], total, nil
}

func (m *memTable) Insert(_ context.Context, tenantID uuid.UUID, data createWidget) (widget, error) {
	m.inserts++
	if m.err != nil {
		return widget{}, m.err
	}
	w := &widget{ID: uuid.New(), TenantID: tenantID, Name: data.Name}
	m.rows[w.ID] = w
	return *w, nil
}

func (m *memTable) Patch(_ context.Context, id, tenantID uuid.UUID, data updateWidget) error {
	m.patches++
	w, ok := m.live(id, tenantID)
	if !ok {
		return store.ErrNotFound
	}
	if data.Name != nil {
		w.Name = *data.Name
	}
	return nil
}

func (m *memTable) SoftDelete(_ context.Context, id, tenantID uuid.UUID) error {
	m.deletes++
	w, ok := m.live(id, tenantID)
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	w.DeletedAt = &now
	return nil
}
