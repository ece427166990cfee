package products

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kliq/backoffice/internal/platform/cache"
	"github.com/kliq/backoffice/internal/shared"
)

// countingRepo counts snapshot reads.
type countingRepo struct {
	*MemoryRepository
	snapshots atomic.Int32
}

func (r *countingRepo) Snapshot(ctx context.Context) (Catalog, error) {
	r.snapshots.Add(1)
	return r.MemoryRepository.Snapshot(ctx)
}

func newTestService(t *testing.T) (*Service, *countingRepo) {
	t.Helper()
	mem, err := NewFixtureRepository()
	require.NoError(t, err)
	repo := &countingRepo{MemoryRepository: mem}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewService(repo, cache.NewVersioned(client, "products", time.Minute), nil)
	var seq atomic.Int32
	svc.newID = func(prefix string) string { return fmt.Sprintf("%s-new-%d", prefix, seq.Add(1)) }
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

func productIDs(products []Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestFixturesFillColourLabels(t *testing.T) {
	c, err := LoadFixtures()
	require.NoError(t, err)
	require.Len(t, c.Themes, 2)
	assert.Equal(t, ColorEntry{Key: "background", Value: "#1A1A1A", Label: "Background Color"}, c.Themes[0].Colors[3])
	assert.Len(t, c.Themes[1].Colors, 6)
	assert.Len(t, c.Singles, 6)
}

func TestListAllGroupsAndStandalone(t *testing.T) {
	svc, _ := newTestService(t)

	products, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"grouped-1", "grouped-2", "single-6"}, productIDs(products))

	gaming := products[0]
	assert.Equal(t, TypeGrouped, gaming.Type)
	require.NotNil(t, gaming.Grouped)
	assert.Equal(t, "Gaming Theme", gaming.Grouped.Theme.Name)
	assert.Len(t, gaming.Grouped.SingleProducts, 3)
	require.NotNil(t, gaming.Price())
	assert.InDelta(t, 10.0, *gaming.Price(), 0.001)

	standalone := products[2]
	assert.Equal(t, TypeSingle, standalone.Type)
	assert.InDelta(t, 5.0, *standalone.Price(), 0.001)
}

func TestListAllIsCachedUntilMutation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListAll(ctx)
	require.NoError(t, err)
	_, err = svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.snapshots.Load())

	active, err := svc.ToggleStatus(ctx, "single-6")
	require.NoError(t, err)
	assert.False(t, active)

	products, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.snapshots.Load())
	assert.False(t, products[2].IsActive)
}

func TestListAllConcurrentMissesShareLoad(t *testing.T) {
	svc, repo := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			products, err := svc.ListAll(context.Background())
			assert.NoError(t, err)
			assert.Len(t, products, 3)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, repo.snapshots.Load(), int32(8))
	assert.GreaterOrEqual(t, repo.snapshots.Load(), int32(1))
}

func TestCreateGroupedCreatesTheme(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	grouped, err := svc.CreateGrouped(ctx, GroupedInput{
		Name: " Streaming Cards ",
		Theme: ThemeInput{
			Name:     "Streaming Theme",
			Colors:   []ColorEntry{{Key: "Primary", Value: "#ff0000"}, {Key: "shadow", Value: "#00000026"}},
			Partials: []PartialImage{{Name: "Play", URL: "/images/play.png"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "grouped-new-3", grouped.ID)
	assert.Equal(t, "Streaming Cards", grouped.Name)
	assert.Equal(t, "theme-new-1", grouped.ThemeID)
	assert.Equal(t, []ColorEntry{
		{Key: "primary", Value: "#FF0000", Label: "Primary Color"},
		{Key: "shadow", Value: "#00000026", Label: "Shadow Color"},
	}, grouped.Theme.Colors)
	assert.Equal(t, "partial-new-2", grouped.Theme.Partials[0].ID)
	assert.Empty(t, grouped.SingleProducts)
}

type rejectingGroupedRepo struct {
	*countingRepo
}

func (rejectingGroupedRepo) InsertGrouped(context.Context, GroupedProduct) error {
	return shared.ErrAlreadyExists
}

func TestCreateGroupedRemovesThemeWhenInsertFails(t *testing.T) {
	svc, repo := newTestService(t)
	svc.repo = rejectingGroupedRepo{countingRepo: repo}
	ctx := context.Background()
	before, err := repo.Snapshot(ctx)
	require.NoError(t, err)

	_, err = svc.CreateGrouped(ctx, GroupedInput{
		Name:  "Streaming Cards",
		Theme: ThemeInput{Name: "Streaming Theme", Colors: []ColorEntry{{Key: "primary", Value: "#FF0000"}}},
	})
	require.ErrorIs(t, err, shared.ErrAlreadyExists)

	after, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, after.Themes, len(before.Themes))
	assert.False(t, slices.ContainsFunc(after.Themes, func(th Theme) bool { return th.ID == "theme-new-1" }))
}

func TestCreateGroupedValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateGrouped(ctx, GroupedInput{Name: " ", Theme: ThemeInput{}})
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, fields, "Name")
	assert.Contains(t, fields, "Theme.Name")

	_, err = svc.CreateGrouped(ctx, GroupedInput{Name: "X", Theme: ThemeInput{Name: "T", Colors: []ColorEntry{{Key: "sparkle", Value: "#FFFFFF"}}}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateGrouped(ctx, GroupedInput{Name: "X", Theme: ThemeInput{Name: "T", Colors: []ColorEntry{{Key: "primary", Value: "#FFF"}}}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateGrouped(ctx, GroupedInput{Name: "X", Theme: ThemeInput{Name: "T", Colors: []ColorEntry{{Key: "primary", Value: "#FFFFFF"}, {Key: "primary", Value: "#000000"}}}})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateSingleAttachesToGroup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	single, err := svc.CreateSingle(ctx, SingleInput{Name: "Game Card $100", Price: 100, GroupedProductID: "grouped-1"})
	require.NoError(t, err)
	assert.True(t, single.IsActive)

	groups, err := svc.ListGrouped(ctx)
	require.NoError(t, err)
	assert.Len(t, groups[0].SingleProducts, 4)

	products, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 3)

	_, err = svc.CreateSingle(ctx, SingleInput{Name: "Lost", Price: 1, GroupedProductID: "grouped-9"})
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "GroupedProductID")

	_, err = svc.CreateSingle(ctx, SingleInput{Name: "Free", Price: 0})
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "Price")

	standalone, err := svc.CreateSingle(ctx, SingleInput{Name: "Solo", Price: 3})
	require.NoError(t, err)
	products, err = svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, standalone.ID, products[len(products)-1].ID)
}

func TestUpdateThemeIsPartialAndPropagates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	name := "Retro Gaming"
	theme, err := svc.UpdateTheme(ctx, "theme-1", ThemePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Retro Gaming", theme.Name)
	assert.Len(t, theme.Colors, 5)
	require.NotNil(t, theme.Banner)
	assert.Equal(t, 1200, theme.Banner.Width)
	assert.Equal(t, time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC), theme.UpdatedAt)

	theme, err = svc.UpdateTheme(ctx, "theme-1", ThemePatch{Colors: []ColorEntry{{Key: "accent", Value: "#123456"}}})
	require.NoError(t, err)
	assert.Equal(t, "Retro Gaming", theme.Name)
	assert.Equal(t, "#123456", theme.Color("accent"))
	assert.Equal(t, "#FF6B35", theme.Color("primary"))

	products, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Retro Gaming", products[0].Grouped.Theme.Name)

	_, err = svc.UpdateTheme(ctx, "theme-9", ThemePatch{Name: &name})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	blank := " "
	_, err = svc.UpdateTheme(ctx, "theme-1", ThemePatch{Name: &blank})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteAndToggle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	active, err := svc.ToggleStatus(ctx, "grouped-2")
	require.NoError(t, err)
	assert.False(t, active)
	active, err = svc.ToggleStatus(ctx, "single-4")
	require.NoError(t, err)
	assert.False(t, active)
	_, err = svc.ToggleStatus(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "single-6"))
	require.NoError(t, svc.Delete(ctx, "grouped-2"))
	assert.ErrorIs(t, svc.Delete(ctx, "grouped-2"), shared.ErrNotFound)

	products, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"grouped-1", "single-4", "single-5"}, productIDs(products))
	assert.False(t, products[1].IsActive)
}

func TestNormalizeColors(t *testing.T) {
	assert.True(t, ValidColorValue("#AABBCC"))
	assert.True(t, ValidColorValue("#aabbcc80"))
	assert.False(t, ValidColorValue("AABBCC"))
	assert.False(t, ValidColorValue("#AABBC"))
	assert.False(t, ValidColorValue("#AABBCCD"))
	assert.Equal(t, "#F59E0B", DefaultColor("warning"))
	assert.Equal(t, "#000000", DefaultColor("unknown"))
	assert.Len(t, ColorKeys, 15)

	colors, err := NormalizeColors([]ColorEntry{{Key: " Info ", Value: "#3b82f6", Label: "Links"}})
	require.NoError(t, err)
	assert.Equal(t, []ColorEntry{{Key: "info", Value: "#3B82F6", Label: "Links"}}, colors)
}
