package producttypes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	types    []*ProductType
	err      error
	all      int
	byID     int
	byHandle int
}

func (c *countingSource) LoadAll(context.Context) ([]*ProductType, error) {
	c.all++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]*ProductType, 0, len(c.types))
	for _, pt := range c.types {
		out = append(out, pt.Clone())
	}
	return out, nil
}

func (c *countingSource) LoadByID(_ context.Context, id int64) (*ProductType, error) {
	c.byID++
	if c.err != nil {
		return nil, c.err
	}
	for _, pt := range c.types {
		if pt.ID == id {
			return pt.Clone(), nil
		}
	}
	return nil, nil
}

func (c *countingSource) LoadByHandle(_ context.Context, handle string) (*ProductType, error) {
	c.byHandle++
	if c.err != nil {
		return nil, c.err
	}
	for _, pt := range c.types {
		if pt.Handle == handle {
			return pt.Clone(), nil
		}
	}
	return nil, nil
}

func registryFixture() *countingSource {
	return &countingSource{types: []*ProductType{
		{ID: 1, Name: "Shirts", Handle: "shirts", TaxCategoryIDs: []int64{1}},
		{ID: 2, Name: "Books", Handle: "books"},
		{ID: 3, Name: "Books", Handle: "ebooks"},
	}}
}

func TestRegistryMemoizesPointLookups(t *testing.T) {
	src := registryFixture()
	reg := NewRegistry(src)
	ctx := context.Background()

	pt, err := reg.ByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, pt)
	assert.Equal(t, "shirts", pt.Handle)

	pt, err = reg.ByHandle(ctx, "shirts")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pt.ID)
	assert.Equal(t, 1, src.byID)
	assert.Zero(t, src.byHandle, "handle lookup served from the id load")

	missing, err := reg.ByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
	_, _ = reg.ByID(ctx, 99)
	assert.Equal(t, 3, src.byID, "misses are not memoized before a full scan")
}

func TestRegistryAllShortCircuitsLookups(t *testing.T) {
	src := registryFixture()
	reg := NewRegistry(src)
	ctx := context.Background()

	all, err := reg.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	_, err = reg.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.all)

	missing, err := reg.ByHandle(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Zero(t, src.byHandle)
	assert.Zero(t, src.byID)
}

func TestRegistryHandsOutCopies(t *testing.T) {
	reg := NewRegistry(registryFixture())
	ctx := context.Background()

	pt, err := reg.ByID(ctx, 1)
	require.NoError(t, err)
	pt.Name = "Mutated"
	pt.TaxCategoryIDs[0] = 42

	again, err := reg.ByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Shirts", again.Name)
	assert.Equal(t, []int64{1}, again.TaxCategoryIDs)
}

func TestRegistryPutEvictRefresh(t *testing.T) {
	src := registryFixture()
	reg := NewRegistry(src)
	ctx := context.Background()

	_, err := reg.All(ctx)
	require.NoError(t, err)

	reg.Put(&ProductType{ID: 1, Name: "Tees", Handle: "tees"})
	old, err := reg.ByHandle(ctx, "shirts")
	require.NoError(t, err)
	assert.Nil(t, old, "renamed handle is dropped")
	renamed, err := reg.ByHandle(ctx, "tees")
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, "Tees", renamed.Name)

	reg.Put(&ProductType{Name: "unsaved"})
	reg.Put(nil)

	reg.Evict(2)
	gone, err := reg.ByID(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, gone)
	gone, err = reg.ByHandle(ctx, "books")
	require.NoError(t, err)
	assert.Nil(t, gone)

	all, err := reg.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	reg.Refresh()
	back, err := reg.ByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, back, "refresh goes back to the source")
	assert.Equal(t, 1, src.byID)
}

func TestRegistryPropagatesSourceErrors(t *testing.T) {
	src := registryFixture()
	src.err = errors.New("db down")
	reg := NewRegistry(src)
	ctx := context.Background()

	_, err := reg.ByID(ctx, 1)
	assert.Error(t, err)
	_, err = reg.All(ctx)
	assert.Error(t, err)

	src.err = nil
	all, err := reg.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// gatedSource parks LoadByID and LoadAll until release is closed, after
// signalling entered.
type gatedSource struct {
	*countingSource
	entered chan struct{}
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		countingSource: registryFixture(),
		entered:        make(chan struct{}, 1),
		release:        make(chan struct{}),
	}
}

func (g *gatedSource) LoadByID(ctx context.Context, id int64) (*ProductType, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.countingSource.LoadByID(ctx, id)
}

func (g *gatedSource) LoadAll(ctx context.Context) ([]*ProductType, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.countingSource.LoadAll(ctx)
}

func TestRegistryKeepsPutOverInFlightPointLoad(t *testing.T) {
	src := newGatedSource()
	reg := NewRegistry(src)
	ctx := context.Background()

	done := make(chan *ProductType, 1)
	go func() {
		pt, err := reg.ByID(ctx, 1)
		assert.NoError(t, err)
		done <- pt
	}()
	<-src.entered

	reg.Put(&ProductType{ID: 1, Name: "Shirts v2", Handle: "shirts"})
	close(src.release)
	stale := <-done
	require.NotNil(t, stale)
	assert.Equal(t, "Shirts", stale.Name, "the racing read sees its own snapshot")

	got, err := reg.ByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Shirts v2", got.Name)
	got, err = reg.ByHandle(ctx, "shirts")
	require.NoError(t, err)
	assert.Equal(t, "Shirts v2", got.Name)
	assert.Equal(t, 1, src.byID)
}

func TestRegistryKeepsPutOverInFlightScan(t *testing.T) {
	src := newGatedSource()
	reg := NewRegistry(src)
	ctx := context.Background()

	done := make(chan int, 1)
	go func() {
		all, err := reg.All(ctx)
		assert.NoError(t, err)
		done <- len(all)
	}()
	<-src.entered

	reg.Put(&ProductType{ID: 1, Name: "Shirts v2", Handle: "shirts"})
	close(src.release)
	assert.Equal(t, 3, <-done)

	got, err := reg.ByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Shirts v2", got.Name)

	// the stale scan was not cached, so the next one goes back to the source
	src.entered = make(chan struct{}, 1)
	_, err = reg.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.all)
}

func TestRegistryEvictDuringPointLoadIsNotUndone(t *testing.T) {
	src := newGatedSource()
	reg := NewRegistry(src)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := reg.ByID(ctx, 2)
		assert.NoError(t, err)
	}()
	<-src.entered
	reg.Evict(2)
	close(src.release)
	<-done

	reg.mu.RLock()
	_, cached := reg.byID[2]
	reg.mu.RUnlock()
	assert.False(t, cached)
}
