//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/askdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	t.Cleanup(func() { _ = rc.Terminate(ctx) })

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "documents",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	require.NoError(t, client.EnsureBucket(ctx))

	key, err := client.Put(ctx, "documents/d1/handbook.md", []byte("# Handbook"), "text/markdown")
	require.NoError(t, err)

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "# Handbook", string(got))

	deleted, err := client.Delete(ctx, key)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = client.Delete(ctx, key)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(context.Background(), S3ClientConfig{Region: "us-east-1"})

	assert.Error(t, err)
}
