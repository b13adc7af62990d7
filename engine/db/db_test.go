package db

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// testCodeCounter provides unique join codes across test fixtures
var testCodeCounter atomic.Uint64

// setupTestDB points the package at a fresh sqlite file for one test.
func setupTestDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tally_test.db")
	Connect("sqlite:" + path)
}

func createTestTeam(t *testing.T, name string, points int) TeamSchema {
	t.Helper()
	team, err := CreateTeam(TeamSchema{
		Name:   name,
		Code:   fmt.Sprintf("T%05d", testCodeCounter.Add(1)),
		Points: points,
	})
	require.NoError(t, err)
	return team
}
