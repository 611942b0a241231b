package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marldb/marl"
	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/query"
)

// TestEndToEnd exercises the full path: facade -> store -> lock manager ->
// git-backed connector (plain mode), across two clients sharing one
// repository directory.
func TestEndToEnd(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	writer, err := marl.Open(ctx, tempDir, marl.WithPlain(true))
	require.NoError(t, err)
	defer writer.Close()

	// Writes land as collection files on disk.
	require.NoError(t, writer.Studies.Create(ctx, marl.Record{"name": "alpha", "status": "active", "sites": 3}))
	require.NoError(t, writer.Studies.Create(ctx, marl.Record{"name": "beta", "status": "draft", "sites": 1}))
	require.NoError(t, writer.Companies.Create(ctx, marl.Record{"name": "acme"}))

	// A second client over the same directory sees the data.
	reader, err := marl.Open(ctx, tempDir, marl.WithPlain(true), marl.WithMustExist(true))
	require.NoError(t, err)
	defer reader.Close()

	coll, err := reader.Studies.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, coll, 2)

	results, err := reader.Studies.Search(ctx, query.Filter{"status": "active"}, query.Options{Sort: "sites"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Name())

	// Updates from one client are visible to the other.
	require.NoError(t, writer.Studies.Update(ctx, "beta", marl.Record{"status": "active"}))
	coll, err = reader.Studies.FindByX(ctx, "status", "active")
	require.NoError(t, err)
	assert.Len(t, coll, 2)

	// Deletes propagate too.
	require.NoError(t, writer.Studies.Delete(ctx, "alpha"))
	_, err = reader.Studies.FindByName(ctx, "alpha")
	assert.True(t, errors.Is(err, core.ErrNotFound), "expected not found, got: %v", err)
}

func TestErrorStatusCodes(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	client, err := marl.Open(ctx, tempDir, marl.WithPlain(true))
	require.NoError(t, err)
	defer client.Close()

	// Missing record -> 404.
	err = client.Studies.Update(ctx, "ghost", marl.Record{"status": "x"})
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.Equal(t, 404, core.StatusOf(err))

	// Record without a name -> 400.
	err = client.Studies.Create(ctx, marl.Record{"status": "active"})
	assert.True(t, errors.Is(err, core.ErrInvalidParameter))
	assert.Equal(t, 400, core.StatusOf(err))

	// The envelope mirrors the pair.
	env := marl.Enclose(nil, err)
	assert.False(t, env.OK)
	assert.Equal(t, 400, env.StatusCode)
	require.NotNil(t, env.Message)
	assert.Equal(t, 400, env.Message.StatusCode)

	ok := marl.Enclose([]string{"a"}, nil)
	assert.True(t, ok.OK)
	assert.Equal(t, 200, ok.StatusCode)
	assert.Nil(t, ok.Message)
}

func TestReadOnlyClient(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	seed, err := marl.Open(ctx, tempDir, marl.WithPlain(true))
	require.NoError(t, err)
	require.NoError(t, seed.Studies.Create(ctx, marl.Record{"name": "alpha"}))
	require.NoError(t, seed.Close())

	client, err := marl.Open(ctx, tempDir, marl.WithPlain(true), marl.WithReadOnly(true), marl.WithMustExist(true))
	require.NoError(t, err)
	defer client.Close()

	// Reads work.
	coll, err := client.Studies.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, coll, 1)

	// Every write path is rejected without touching the backend.
	assert.True(t, errors.Is(client.Studies.Create(ctx, marl.Record{"name": "beta"}), core.ErrReadOnly))
	assert.True(t, errors.Is(client.Studies.Update(ctx, "alpha", marl.Record{"x": 1}), core.ErrReadOnly))
	assert.True(t, errors.Is(client.Studies.Delete(ctx, "alpha"), core.ErrReadOnly))

	coll, err = client.Studies.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, coll, 1, "read-only client must not have changed the collection")
}

func TestYAMLRepository(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	client, err := marl.Open(ctx, tempDir, marl.WithPlain(true), marl.WithFormat("yaml"))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Interactions.Create(ctx, marl.Record{
		"name":      "kickoff-call",
		"file_hash": "abc123",
	}))

	coll, err := client.Interactions.FindByHash(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, coll, 1)
	assert.Equal(t, "kickoff-call", coll[0].Name())
}
