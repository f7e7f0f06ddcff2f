// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package store

import (
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dextracker/dextracker/pkg/errutil"
)

type mockMigrate struct {
	upErr          error
	downErr        error
	versionVal     uint
	versionErr     error
	dirty          bool
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/dextracker")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@db:5432/dex", "pgx5://u:p@db:5432/dex"},
		{"postgresql://u:p@db:5432/dex", "pgx5://u:p@db:5432/dex"},
		{"pgx5://u:p@db:5432/dex", "pgx5://u:p@db:5432/dex"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestMigrator_Up(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"success", nil, ""},
		{"no change is success", migrate.ErrNoChange, ""},
		{"failure", errors.New("database locked"), "MIGRATION_UP_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Migrator{m: &mockMigrate{upErr: tt.err}}).Up()
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestMigrator_Down(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{downErr: migrate.ErrNoChange}}).Down())

	err := (&Migrator{m: &mockMigrate{downErr: errors.New("constraint violation")}}).Down()
	errutil.AssertErrorCode(t, err, "MIGRATION_DOWN_FAILED")
}

func TestMigrator_Version(t *testing.T) {
	t.Run("fresh database is version zero", func(t *testing.T) {
		version, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
		require.NoError(t, err)
		assert.Zero(t, version)
		assert.False(t, dirty)
	})

	t.Run("dirty state is reported", func(t *testing.T) {
		version, dirty, err := (&Migrator{m: &mockMigrate{versionVal: 2, dirty: true}}).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.True(t, dirty)
	})

	t.Run("failure", func(t *testing.T) {
		_, _, err := (&Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}).Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Status(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "000001_reference_data"},
		{Version: 2, Name: "000002_users_and_dexes"},
	}
	m := &Migrator{m: &mockMigrate{versionVal: 1}, migrations: migrations}

	status, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Current)
	assert.Equal(t, migrations[:1], status.Applied)
	assert.Equal(t, migrations[1:], status.Pending)
}

func TestMigrator_Close(t *testing.T) {
	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Close())

	err := (&Migrator{m: &mockMigrate{
		closeSourceErr: errors.New("source close failed"),
		closeDbErr:     errors.New("db close failed"),
	}}).Close()
	errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
	assert.Contains(t, err.Error(), "source close failed")
	assert.Contains(t, err.Error(), "db close failed")
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := embeddedMigrations(migrationsFS)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, uint(1), migrations[0].Version)

	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2*len(migrations), "every up migration needs a down migration")

	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	for _, entry := range entries {
		assert.Regexp(t, pattern, entry.Name())
	}
}

func TestEmbeddedMigrations_SortsAndRejectsMalformed(t *testing.T) {
	sorted, err := embeddedMigrations(fstest.MapFS{
		"migrations/000010_later.up.sql":  {},
		"migrations/000002_early.up.sql":  {},
		"migrations/000002_early.down.sql": {},
	})
	require.NoError(t, err)
	assert.Equal(t, []Migration{{2, "000002_early"}, {10, "000010_later"}}, sorted)

	_, err = embeddedMigrations(fstest.MapFS{"migrations/first.up.sql": {}})
	errutil.AssertErrorCode(t, err, "MIGRATION_LIST_FAILED")
}
