package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsertValidation(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "mapunit_parameters"}, [][]any{{"463163"}})
	assert.Error(t, err)

	_, err = BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "mapunit_parameters",
		Columns: []string{"mukey"},
	}, [][]any{{"463163"}})
	assert.Error(t, err)

	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsertSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_mapunit_parameters"}, []string{"mukey", "ks_inhr"}).
		WillReturnResult(2)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "mapunit_parameters",
		Columns:      []string{"mukey", "ks_inhr"},
		ConflictKeys: []string{"mukey"},
	}, [][]any{{"463163", 0.13}, {"463164", 4.74}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
