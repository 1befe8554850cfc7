package authclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-authclient"
)

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	_, ok := authclient.IdentityFromContext(ctx)
	assert.False(t, ok)

	identity := testIdentity("1")
	ctx = authclient.WithIdentity(ctx, identity)
	identity.Email = "changed@b.com"

	got, ok := authclient.IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, authclient.IdentityID("1"), got.ID)
	assert.Equal(t, "a@b.com", got.Email)
}

func TestIdentityContextNil(t *testing.T) {
	ctx := authclient.WithIdentity(context.Background(), nil)
	_, ok := authclient.IdentityFromContext(ctx)
	assert.False(t, ok)

	//nolint:staticcheck
	_, ok = authclient.IdentityFromContext(nil)
	assert.False(t, ok)
}
