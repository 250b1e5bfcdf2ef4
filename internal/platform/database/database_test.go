package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	d, err := Dialector(DriverMySQL, "u:p@tcp(localhost:3306)/db")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	d, err = Dialector(DriverPostgres, "host=localhost user=u dbname=db")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Dialector("sqlserver", "x")
	assert.Error(t, err)
}
