package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFromEmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "run_parameters", []string{"mukey", "ks_inhr"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFromSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"run_parameters"}, []string{"mukey", "ks_inhr"}).WillReturnResult(2)

	rows := [][]any{{"463163", 0.13}, {"463164", 4.74}}
	n, err := CopyFrom(context.Background(), mock, "run_parameters", []string{"mukey", "ks_inhr"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"run_parameters"}, []string{"mukey"}).
		WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "run_parameters", []string{"mukey"}, [][]any{{"463163"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "run_parameters")
}
