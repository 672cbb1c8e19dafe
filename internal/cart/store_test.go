package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/events"
)

const (
	lamp  = "6f1d2c9e-8a41-4b8e-9f2a-0c7d5e3b1a11"
	chair = "0a6b1f7e-3c2d-4e5f-8a9b-1c2d3e4f5a6b"
	ghost = "9e8d7c6b-5a49-4382-a1b0-c9d8e7f6a5b4"
)

type memRepo struct {
	mu    sync.Mutex
	carts map[string]Cart

	// beforeReplace runs once per Replace call while the lock is held.
	beforeReplace func(r *memRepo, c *Cart)
	failReplace   error
}

func newMemRepo() *memRepo { return &memRepo{carts: map[string]Cart{}} }

func clone(c Cart) *Cart {
	c.Items = append([]Item{}, c.Items...)
	return &c
}

func (r *memRepo) GetByUser(_ context.Context, userID string) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return clone(c), nil
}

func (r *memRepo) LockByUser(ctx context.Context, userID string) (*Cart, error) {
	return r.GetByUser(ctx, userID)
}

func (r *memRepo) Create(_ context.Context, c *Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[c.UserID]; ok {
		return ErrConflict
	}
	r.carts[c.UserID] = *clone(*c)
	return nil
}

func (r *memRepo) Replace(_ context.Context, c *Cart, expected time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReplace != nil {
		return r.failReplace
	}
	if hook := r.beforeReplace; hook != nil {
		r.beforeReplace = nil
		hook(r, c)
	}
	cur, ok := r.carts[c.UserID]
	if !ok || !cur.UpdatedAt.Equal(expected) {
		return ErrConflict
	}
	r.carts[c.UserID] = *clone(*c)
	return nil
}

type fakeCatalog map[string]catalog.Product

func (f fakeCatalog) FindByID(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

type recordedActivity struct {
	mu     sync.Mutex
	events []string
}

func (a *recordedActivity) Publish(_ context.Context, eventType string, _ *Cart, _ string, _ int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, eventType)
}

func newTestStore(repo Repository) (*Store, *recordedActivity) {
	act := &recordedActivity{}
	cat := fakeCatalog{
		lamp:  {ID: lamp, Title: "Lamp", PriceCents: 1000},
		chair: {ID: chair, Title: "Chair", PriceCents: 500},
	}
	return NewStore(repo, cat, act, nil), act
}

func TestGetOrCreate_CreatesOnce(t *testing.T) {
	repo := newMemRepo()
	s, _ := newTestStore(repo)
	ctx := context.Background()

	c1, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c1.IsEmpty())
	assert.Equal(t, "u1", c1.UserID)

	c2, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID)
	assert.Len(t, repo.carts, 1)
}

func TestGetOrCreate_EmptyUser(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	_, err := s.GetOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestAddItem_Accumulates(t *testing.T) {
	s, act := newTestStore(newMemRepo())
	ctx := context.Background()

	_, err := s.AddItem(ctx, "u1", lamp, 2)
	require.NoError(t, err)
	c, err := s.AddItem(ctx, "u1", lamp, 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)

	stored, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Items[0].Quantity)
	assert.Equal(t, []string{events.EventCartItemAdded, events.EventCartItemAdded}, act.events)
}

func TestAddItem_Rejections(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	ctx := context.Background()

	_, err := s.AddItem(ctx, "u1", ghost, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = s.AddItem(ctx, "u1", lamp, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = s.AddItem(ctx, "u1", lamp, -2)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = s.AddItem(ctx, "u1", "not-an-id", 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestAddItem_QuantityLimit(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	ctx := context.Background()

	_, err := s.AddItem(ctx, "u1", lamp, MaxQuantity+1)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = s.AddItem(ctx, "u1", lamp, MaxQuantity)
	require.NoError(t, err)

	// merging past the limit must not wrap around
	_, err = s.AddItem(ctx, "u1", lamp, 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	c, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, c.Items[0].Quantity)

	_, err = s.UpdateQuantity(ctx, "u1", lamp, MaxQuantity+1)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	c, err = s.UpdateQuantity(ctx, "u1", lamp, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Items[0].Quantity)
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	repo := newMemRepo()
	s, act := newTestStore(repo)
	ctx := context.Background()

	before, err := s.AddItem(ctx, "u1", lamp, 1)
	require.NoError(t, err)

	after, err := s.RemoveItem(ctx, "u1", chair)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{events.EventCartItemAdded}, act.events)
}

func TestRemoveItem(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	ctx := context.Background()

	_, err := s.AddItem(ctx, "u1", lamp, 1)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "u1", chair, 1)
	require.NoError(t, err)

	c, err := s.RemoveItem(ctx, "u1", lamp)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, chair, c.Items[0].ProductID)
}

func TestRemoveItem_NoCart(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	_, err := s.RemoveItem(context.Background(), "u1", lamp)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestUpdateQuantity(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	ctx := context.Background()

	_, err := s.AddItem(ctx, "u1", lamp, 4)
	require.NoError(t, err)

	c, err := s.UpdateQuantity(ctx, "u1", lamp, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestUpdateQuantity_AbsentItemLeavesCart(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	ctx := context.Background()

	before, err := s.AddItem(ctx, "u1", lamp, 4)
	require.NoError(t, err)

	_, err = s.UpdateQuantity(ctx, "u1", chair, 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	after, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = s.UpdateQuantity(ctx, "u1", lamp, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestUpdateQuantity_NoCart(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	_, err := s.UpdateQuantity(context.Background(), "u1", lamp, 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestClear_Idempotent(t *testing.T) {
	s, _ := newTestStore(newMemRepo())
	ctx := context.Background()

	_, err := s.AddItem(ctx, "u1", lamp, 1)
	require.NoError(t, err)

	c, err := s.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	c, err = s.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = s.Clear(ctx, "nobody")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestMutate_RetriesOnConflict(t *testing.T) {
	repo := newMemRepo()
	s, _ := newTestStore(repo)
	ctx := context.Background()

	_, err := s.AddItem(ctx, "u1", lamp, 1)
	require.NoError(t, err)

	// a concurrent writer adds a chair between our read and our write
	repo.beforeReplace = func(r *memRepo, _ *Cart) {
		cur := r.carts["u1"]
		cur.Items = append(cur.Items, Item{ID: "x", ProductID: chair, Quantity: 1})
		cur.UpdatedAt = cur.UpdatedAt.Add(time.Second)
		r.carts["u1"] = cur
	}

	c, err := s.AddItem(ctx, "u1", lamp, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 2, "the concurrent chair survives")
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, chair, c.Items[1].ProductID)
}

type alwaysConflict struct{ *memRepo }

func (alwaysConflict) Replace(context.Context, *Cart, time.Time) error { return ErrConflict }

func TestMutate_GivesUpAfterAttempts(t *testing.T) {
	repo := alwaysConflict{newMemRepo()}
	s, _ := newTestStore(repo)

	_, err := s.AddItem(context.Background(), "u1", lamp, 1)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMutate_StorageFailure(t *testing.T) {
	repo := newMemRepo()
	s, act := newTestStore(repo)
	ctx := context.Background()
	_, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	repo.failReplace = apperr.Storage(errors.New("connection reset"))
	_, err = s.AddItem(ctx, "u1", lamp, 1)
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Empty(t, act.events)
}

func TestSnapshotAndEmpty(t *testing.T) {
	repo := newMemRepo()
	s, act := newTestStore(repo)
	ctx := context.Background()

	_, err := s.Snapshot(ctx, "u1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = s.AddItem(ctx, "u1", lamp, 1)
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, s.Empty(ctx, snap))

	c, err := s.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, []string{events.EventCartItemAdded}, act.events, "checkout clear is not cart activity")
}
