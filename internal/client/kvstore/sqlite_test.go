package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_SetGet(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "authToken", []byte("tok")))
	v, err := s.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), v)
}

func TestSQLite_GetMissing_ReturnsNilNil(t *testing.T) {
	s := openMem(t)

	v, err := s.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSQLite_SetOverwrites(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("old")))
	require.NoError(t, s.Set(ctx, "k", []byte("new")))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestSQLite_SetManyAndRemove(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	require.NoError(t, s.SetMany(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
		"c": []byte("3"),
	}))
	require.NoError(t, s.Remove(ctx, "a", "b", "never-set"))

	for k, want := range map[string][]byte{"a": nil, "b": nil, "c": []byte("3")} {
		v, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, want, v, k)
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "state", "client.db")

	s1, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "lastLogin", []byte("maria")))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	defer s2.Close()

	v, err := s2.Get(ctx, "lastLogin")
	require.NoError(t, err)
	assert.Equal(t, []byte("maria"), v)
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='kv'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLite_DriverErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(`SELECT value FROM kv`).WithArgs("k").WillReturnError(errors.New("io"))

		_, err = NewSQLite(db).Get(ctx, "k")
		require.ErrorContains(t, err, "failed to get kv[k]")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectExec(`INSERT INTO kv`).WillReturnError(errors.New("readonly"))

		err = NewSQLite(db).Set(ctx, "k", []byte("v"))
		require.ErrorContains(t, err, "failed to set kv[k]")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set many rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO kv`).WillReturnError(errors.New("readonly"))
		mock.ExpectRollback()

		err = NewSQLite(db).SetMany(ctx, map[string][]byte{"k": []byte("v")})
		require.ErrorContains(t, err, "failed to set kv batch")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("remove rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM kv`).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM kv`).WithArgs("b").WillReturnError(errors.New("busy"))
		mock.ExpectRollback()

		err = NewSQLite(db).Remove(ctx, "a", "b")
		require.ErrorContains(t, err, "failed to remove kv")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("apply rolls back writes when a removal fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO kv`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`DELETE FROM kv`).WithArgs("colaborador").WillReturnError(errors.New("locked"))
		mock.ExpectRollback()

		err = NewSQLite(db).Apply(ctx, map[string][]byte{"authToken": []byte("tokB")}, []string{"colaborador"})
		require.ErrorContains(t, err, "failed to apply kv change")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLite_ApplySetsAndRemoves(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	require.NoError(t, s.SetMany(ctx, map[string][]byte{
		"authToken":   []byte("tokA"),
		"colaborador": []byte(`{"matricula":"A1"}`),
	}))
	require.NoError(t, s.Apply(ctx, map[string][]byte{"authToken": []byte("tokB")}, []string{"colaborador"}))

	v, err := s.Get(ctx, "authToken")
	require.NoError(t, err)
	assert.Equal(t, []byte("tokB"), v)

	v, err = s.Get(ctx, "colaborador")
	require.NoError(t, err)
	assert.Nil(t, v)
}
