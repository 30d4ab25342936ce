package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls   []string
	err     error
	version uint
	dirty   bool
	verErr  error
}

func (f *fakeMigrator) Up() error   { f.calls = append(f.calls, "up"); return f.err }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return f.err }

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	return f.err
}

func (f *fakeMigrator) Migrate(v uint) error {
	f.calls = append(f.calls, "migrate")
	f.version = v
	return f.err
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, f.verErr }

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.version, f.dirty = uint(v), false
	return f.err
}

func TestRunCommands(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		want  string
		calls []string
	}{
		{"up", []string{"up"}, "Migrated up", []string{"up"}},
		{"down", []string{"down"}, "Migrated down", []string{"down"}},
		{"steps back", []string{"steps", "-1"}, "Applied -1 step(s)", []string{"steps"}},
		{"goto", []string{"goto", "3"}, "Migrated to version 3", []string{"migrate"}},
		{"force", []string{"force", "2"}, "Forced version to 2", []string{"force"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeMigrator{}
			out, err := run(f, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.calls, f.calls)
		})
	}
}

func TestRunTreatsNoChangeAsSuccess(t *testing.T) {
	f := &fakeMigrator{err: migrate.ErrNoChange}
	out, err := run(f, []string{"up"})
	require.NoError(t, err)
	assert.Equal(t, "Migrated up", out)
}

func TestRunWrapsFailures(t *testing.T) {
	boom := errors.New("dirty database")
	_, err := run(&fakeMigrator{err: boom}, []string{"steps", "2"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "steps 2")
}

func TestRunVersion(t *testing.T) {
	out, err := run(&fakeMigrator{version: 1, dirty: true}, []string{"version"})
	require.NoError(t, err)
	assert.Equal(t, "Version 1, dirty: true", out)

	out, err = run(&fakeMigrator{verErr: migrate.ErrNilVersion}, []string{"version"})
	require.NoError(t, err)
	assert.Equal(t, "No migration applied", out)
}

func TestRunRejectsBadArguments(t *testing.T) {
	for _, args := range [][]string{
		{"steps"},
		{"steps", "0"},
		{"goto", "-4"},
		{"force", "one"},
		{"sideways"},
	} {
		f := &fakeMigrator{}
		_, err := run(f, args)
		assert.Error(t, err, args)
		assert.Empty(t, f.calls, args)
	}
}
