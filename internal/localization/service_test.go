package localization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kliq/backoffice/internal/shared"
)

func newFixtureService(t *testing.T) *Service {
	t.Helper()
	keys, err := LoadFixtures()
	require.NoError(t, err)
	svc, err := NewService(NewMemoryStore(keys...), nil, nil)
	require.NoError(t, err)
	return svc
}

func keyNames(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Key
	}
	return out
}

func TestNewServiceCanonicalisesLanguages(t *testing.T) {
	svc, err := NewService(NewMemoryStore(), []string{" EN ", "tr", "en", "pt-br"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "tr", "pt-BR"}, svc.Languages())

	_, err = NewService(NewMemoryStore(), []string{"not a tag!"}, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAddValidatesAndTrims(t *testing.T) {
	ctx := context.Background()
	svc := newFixtureService(t)

	err := svc.Add(ctx, Key{Key: "  "})
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = svc.Add(ctx, Key{Key: "nav.customers"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	err = svc.Add(ctx, Key{Key: "x", Translations: map[string]string{"??": "bad"}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.Add(ctx, Key{
		Key:          "  footer.copyright ",
		Category:     " footer ",
		Translations: map[string]string{"EN": " (c) Kliq ", "tr": "   "},
	}))
	got, err := svc.Get(ctx, "footer.copyright")
	require.NoError(t, err)
	assert.Equal(t, "footer", got.Category)
	assert.Equal(t, map[string]string{"en": "(c) Kliq"}, got.Translations)
}

func TestUpdateKeepsUnsetFields(t *testing.T) {
	ctx := context.Background()
	svc := newFixtureService(t)

	category := "menu"
	updated, err := svc.Update(ctx, "nav.customers", KeyPatch{Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "menu", updated.Category)
	assert.Equal(t, "Müşteriler", updated.Translations["tr"])
	assert.Equal(t, "Left menu entry for the customer directory", updated.Description)

	updated, err = svc.Update(ctx, "nav.customers", KeyPatch{Translations: map[string]string{"en": "Clients"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"en": "Clients"}, updated.Translations)

	_, err = svc.Update(ctx, "missing", KeyPatch{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newFixtureService(t)

	require.NoError(t, svc.Delete(ctx, "nav.orders"))
	_, err := svc.Get(ctx, "nav.orders")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "nav.orders"), shared.ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newFixtureService(t)

	cases := []struct {
		name     string
		query    string
		category string
		want     []string
	}{
		{name: "key substring", query: "STATUS", want: []string{"orders.status.delivered", "orders.status.pending"}},
		{name: "translation", query: "teslim", want: []string{"orders.status.delivered"}},
		{name: "description", query: "left menu", want: []string{"nav.customers", "nav.orders"}},
		{name: "category only", category: "customers", want: []string{"customers.search.kliq_id", "customers.search.phone"}},
		{name: "all category", query: "pin", category: CategoryAll, want: []string{"nav.orders", "nav.products"}},
		{name: "category and query", query: "pin", category: "orders", want: []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Search(ctx, tc.query, tc.category)
			require.NoError(t, err)
			assert.Equal(t, tc.want, keyNames(got))
		})
	}
}

func TestCategories(t *testing.T) {
	svc := newFixtureService(t)
	got, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "navigation", "orders"}, got)
}

func TestExportSkipsMissing(t *testing.T) {
	ctx := context.Background()
	svc := newFixtureService(t)

	tr, err := svc.Export(ctx, "tr")
	require.NoError(t, err)
	assert.Len(t, tr, 5)
	assert.Equal(t, "Müşteriler", tr["nav.customers"])
	assert.NotContains(t, tr, "orders.status.pending")

	_, err = svc.Export(ctx, "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestImportCreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	svc := newFixtureService(t)

	result, err := svc.Import(ctx, "TR", map[string]string{
		"orders.status.pending": "Beklemede",
		"orders.status.failed":  "Başarısız",
		"  ":                    "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Updated: 1}, result)

	pending, err := svc.Get(ctx, "orders.status.pending")
	require.NoError(t, err)
	assert.Equal(t, "Pending", pending.Translations["en"])
	assert.Equal(t, "Beklemede", pending.Translations["tr"])

	failed, err := svc.Get(ctx, "orders.status.failed")
	require.NoError(t, err)
	assert.Equal(t, CategoryImported, failed.Category)
	assert.Equal(t, map[string]string{"tr": "Başarısız"}, failed.Translations)
}

func TestMissingAndStats(t *testing.T) {
	ctx := context.Background()
	svc := newFixtureService(t)

	missing, err := svc.Missing(ctx, "tr")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers.search.phone", "orders.status.pending"}, keyNames(missing))

	_, err = svc.Import(ctx, "de", map[string]string{"nav.customers": "Kunden"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalKeys)
	assert.Equal(t, LanguageStats{Total: 7, Complete: 7, Missing: 0}, stats.Languages["en"])
	assert.Equal(t, LanguageStats{Total: 7, Complete: 5, Missing: 2}, stats.Languages["tr"])
	assert.Equal(t, LanguageStats{Total: 7, Complete: 1, Missing: 6}, stats.Languages["de"])
	assert.Equal(t, 71, stats.Languages["tr"].Percent())
}
