package pgstore

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/trackauth/store"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	row     fakeRow
	tag     pgconn.CommandTag
	execErr error
	queries []string
	execs   []execCall
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return f.tag, f.execErr
}

func TestFindByEmailScansRow(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	login := created.Add(time.Hour)
	db := &fakeDB{row: fakeRow{values: []any{
		"acct-1", "student@uni.test", "$2a$04$x", "sid-1", "Ada", "Lovelace",
		true, created, &login, (*time.Time)(nil),
	}}}

	acct, err := New(db).FindByEmail(context.Background(), " Student@Uni.test ")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", acct.ID)
	assert.Equal(t, "sid-1", acct.SessionID)
	assert.True(t, acct.EmailVerified)
	assert.Equal(t, login, acct.LastLoginAt)
	assert.True(t, acct.LastPasswordChangeAt.IsZero())
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "WHERE email = $1")
}

func TestFindMapsNoRows(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	_, err := New(db).FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	db.row = fakeRow{err: errors.New("connection reset")}
	_, err = New(db).FindByID(context.Background(), "any")
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestCreate(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	acct := &store.Account{Email: "NEW@uni.test", PasswordHash: "h"}

	require.NoError(t, New(db).Create(context.Background(), acct))
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, "new@uni.test", acct.Email)
	require.Len(t, db.execs, 1)
	assert.Nil(t, db.execs[0].args[3], "empty session id is stored as NULL")

	db.tag = pgconn.NewCommandTag("INSERT 0 0")
	err := New(db).Create(context.Background(), &store.Account{Email: "new@uni.test"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestSave(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	acct := &store.Account{ID: "acct-1", Email: "a@uni.test", PasswordHash: "h2", SessionID: "sid-2"}

	require.NoError(t, New(db).Save(context.Background(), acct))
	require.Len(t, db.execs, 1)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(db.execs[0].sql), "UPDATE accounts SET"))
	assert.Equal(t, "h2", db.execs[0].args[2])
	assert.Equal(t, "sid-2", *(db.execs[0].args[3].(*string)))

	db.tag = pgconn.NewCommandTag("UPDATE 0")
	assert.ErrorIs(t, New(db).Save(context.Background(), acct), store.ErrNotFound)

	db.execErr = &pgconn.PgError{Code: uniqueViolation}
	assert.ErrorIs(t, New(db).Save(context.Background(), acct), store.ErrDuplicate)
}

func TestMigrate(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, New(db).Migrate(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS accounts")
}
