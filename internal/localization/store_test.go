package localization

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kliq/backoffice/internal/shared"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test-l10n")
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  newRedisStore(t),
	}
}

func TestStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"b.key", "a.key", "c.key"} {
				require.NoError(t, store.Insert(ctx, Key{Key: k, Translations: map[string]string{"en": k}}))
			}
			require.NoError(t, store.Put(ctx, Key{Key: "a.key", Translations: map[string]string{"en": "changed"}}))

			all, err := store.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"b.key", "a.key", "c.key"}, []string{all[0].Key, all[1].Key, all[2].Key})
			assert.Equal(t, "changed", all[1].Translations["en"])
		})
	}
}

func TestStoreInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Insert(ctx, Key{Key: "dup"}))
			assert.ErrorIs(t, store.Insert(ctx, Key{Key: "dup"}), shared.ErrAlreadyExists)
		})
	}
}

func TestStoreGetAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Insert(ctx, Key{Key: "one", Category: "misc", Translations: map[string]string{"tr": "bir"}}))

			got, err := store.Get(ctx, "one")
			require.NoError(t, err)
			assert.Equal(t, "misc", got.Category)
			assert.Equal(t, "bir", got.Translation("tr"))

			require.NoError(t, store.Delete(ctx, "one"))
			_, err = store.Get(ctx, "one")
			assert.ErrorIs(t, err, shared.ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, "one"), shared.ErrNotFound)

			all, err := store.All(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(Key{Key: "k", Translations: map[string]string{"en": "v"}})

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	got.Translations["en"] = "mutated"

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Translations["en"])
}

func TestRedisStoreSeedSkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	require.NoError(t, store.Insert(ctx, Key{Key: "nav.customers", Translations: map[string]string{"en": "Clients"}}))

	keys, err := LoadFixtures()
	require.NoError(t, err)
	require.NoError(t, store.Seed(ctx, keys))

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(keys))
	got, err := store.Get(ctx, "nav.customers")
	require.NoError(t, err)
	assert.Equal(t, "Clients", got.Translations["en"])
}
