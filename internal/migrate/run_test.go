package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/todo-platform/internal/migrate"
	"github.com/target/todo-platform/internal/testutil"
)

func TestRun_IsIdempotent(t *testing.T) {
	db := testutil.SetupEphemeralSchemaDB(t)
	ctx := context.Background()

	require.NoError(t, migrate.Run(ctx, db))

	status, err := migrate.Status(ctx, db)
	require.NoError(t, err)
	require.NotEmpty(t, status)
	for _, m := range status {
		assert.True(t, m.Applied, m.Version)
	}
	assert.Equal(t, "0001_users_roles", status[0].Version)

	var roles int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT count(*) FROM roles WHERE name IN ('ROLE_USER', 'ROLE_ADMIN')`).Scan(&roles))
	assert.Equal(t, 2, roles)
}
