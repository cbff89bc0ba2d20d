package fields

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/commerce-core/pkg/db"
	"github.com/angelmondragon/commerce-core/pkg/db/dbtest"
	"github.com/angelmondragon/commerce-core/pkg/enums"
)

func TestSaveFindDelete(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	layout := &Layout{Type: enums.FieldLayoutProduct, Tabs: []Tab{{Name: "Content", FieldIDs: []int64{3, 1}}}}
	id, err := repo.Save(ctx, layout)
	require.NoError(t, err)
	require.NotZero(t, id)
	assert.Equal(t, id, layout.ID)

	layout.Tabs = append(layout.Tabs, Tab{Name: "SEO"})
	again, err := repo.Save(ctx, layout)
	require.NoError(t, err)
	assert.Equal(t, id, again, "saving an existing layout keeps its id")

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Tabs, 2)
	assert.Equal(t, []int64{3, 1}, got.Tabs[0].FieldIDs)

	clone := got.Clone()
	clone.Tabs[0].FieldIDs[0] = 99
	assert.Equal(t, int64(3), got.Tabs[0].FieldIDs[0])

	require.NoError(t, repo.DeleteByID(ctx, id))
	_, err = repo.FindByID(ctx, id)
	assert.True(t, db.IsNotFound(err))

	_, err = repo.Save(ctx, &Layout{Type: "order"})
	assert.Error(t, err)
}
