package store

import (
	"context"
	"errors"
	"hotelscore/internal/score"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	return NewPostgresStore(db), mock
}

func TestPostgresStore_ActiveRules(t *testing.T) {
	s, mock := setupPostgres(t)

	rows := sqlmock.NewRows([]string{"item_kind", "value", "active"}).
		AddRow("hotel", 5.0, true).
		AddRow("legacy", 1.0, true).
		AddRow("country", 3.0, true)
	mock.ExpectQuery(queryActiveRules).WillReturnRows(rows)

	rules, err := s.ActiveRules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []score.Rule{
		{Kind: score.Hotel, Value: 5, Active: true},
		{Kind: score.Country, Value: 3, Active: true},
	}, rules)
}

func TestPostgresStore_IsEmpty(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectQuery(queryRulesEmpty).WillReturnRows(sqlmock.NewRows([]string{"empty"}).AddRow(true))

	empty, err := s.IsEmpty(context.Background())
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestPostgresStore_InsertRules(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(queryInsertRule).WithArgs("hotel", 5.0, true).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(queryInsertRule).WithArgs("country", 3.0, true).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, s.InsertRules(context.Background(), score.DefaultSeed().Rules))
}

func TestPostgresStore_InsertRulesRollback(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(queryInsertRule).WithArgs("hotel", 5.0, true).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.InsertRules(context.Background(), score.DefaultSeed().Rules)
	assert.True(t, errors.Is(err, score.ErrStoreUnavailable))
}

func TestPostgresStore_Update(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		expected bool
	}{
		{"matched", 1, true},
		{"no rule of kind", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := setupPostgres(t)

			mock.ExpectExec(querySetValue).WithArgs(7.5, "country").WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectExec(querySetActive).WithArgs(false, "country").WillReturnResult(sqlmock.NewResult(0, tt.affected))

			modified, err := s.SetValue(context.Background(), score.Country, 7.5)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, modified)

			modified, err = s.SetActive(context.Background(), score.Country, false)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, modified)
		})
	}
}

func TestPostgresStore_Membership(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectQuery(queryMembership).
		WithArgs("hotel", int64(1001), "country", int64(2000)).
		WillReturnRows(sqlmock.NewRows([]string{"by_id", "by_country"}).AddRow(true, false))

	m, err := s.Membership(context.Background(), 1001, 2000)
	require.NoError(t, err)
	assert.Equal(t, score.Membership{ByID: true}, m)
}

func TestPostgresStore_InsertEntries(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(queryInsertEntry).WithArgs("hotel", int64(1001)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(queryInsertEntry).WithArgs("country", int64(16100)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InsertEntries(context.Background(), []score.ShortlistEntry{
		{Kind: score.Hotel, ID: 1001},
		{Kind: score.Country, ID: 16100},
	})
	require.NoError(t, err)
}

func TestPostgresStore_Shortlisted(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectQuery(queryShortlisted).WithArgs("country").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(16100).AddRow(16200))

	ids, err := s.Shortlisted(context.Background(), score.Country)
	require.NoError(t, err)
	assert.Equal(t, []int64{16100, 16200}, ids)
}

func TestPostgresStore_Unavailable(t *testing.T) {
	s, mock := setupPostgres(t)

	mock.ExpectQuery(queryActiveRules).WillReturnError(errors.New("connection refused"))
	mock.ExpectQuery(queryMembership).WillReturnError(errors.New("connection refused"))

	_, err := s.ActiveRules(context.Background())
	assert.True(t, errors.Is(err, score.ErrStoreUnavailable))

	_, err = s.Membership(context.Background(), 1, 2)
	var storeErr *score.StoreUnavailableError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "shortlist.membership", storeErr.Op)
}

func TestPostgresStore_SchemaCreatedOnDemand(t *testing.T) {
	s, mock := setupPostgres(t)
	s.schemaReady.Store(false)
	ctx := context.Background()

	mock.ExpectExec(Schema).WillReturnError(errors.New("connection refused"))

	_, err := s.IsEmpty(ctx)
	var storeErr *score.StoreUnavailableError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "schema", storeErr.Op)

	mock.ExpectExec(Schema).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(queryRulesEmpty).WillReturnRows(sqlmock.NewRows([]string{"empty"}).AddRow(true))
	mock.ExpectQuery(queryShortlisted).WithArgs("hotel").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	empty, err := s.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	ids, err := s.Shortlisted(ctx, score.Hotel)
	require.NoError(t, err)
	assert.Empty(t, ids, "schema is created once")
}
