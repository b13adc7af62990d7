package engine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tally/engine/config"
	"tally/engine/db"
)

var testCodeCounter atomic.Uint64

// setupEngine points the store at a fresh sqlite file and returns an
// engine with a small known spend catalog.
func setupEngine(t *testing.T) *LedgerEngine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tally_test.db")
	db.Connect("sqlite:" + path)

	conf := &config.ConfigSettings{}
	conf.MiscSettings.PointsPerTick = 100
	conf.MiscSettings.TickInterval = 60
	conf.SpendSettings.Options = []int{5, 10, 25, 50}
	conf.SpendSettings.Named = []config.SpendItem{
		{Name: "Coffee", Cost: 25},
		{Name: "Pizza", Cost: 50},
	}
	return NewEngine(conf)
}

func createTestTeam(t *testing.T, name string, points int) db.TeamSchema {
	t.Helper()
	team, err := db.CreateTeam(db.TeamSchema{
		Name:   name,
		Code:   fmt.Sprintf("E%05d", testCodeCounter.Add(1)),
		Points: points,
	})
	require.NoError(t, err)
	return team
}

func TestCreateTeamsGeneratesUniqueJoinCodes(t *testing.T) {
	le := setupEngine(t)

	names := make([]string, 30)
	for i := range names {
		names[i] = fmt.Sprintf("Team %02d", i)
	}
	result, err := le.CreateTeams(names)
	require.NoError(t, err)
	require.Len(t, result.Created, 30)
	require.Empty(t, result.Duplicates)

	codePattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	seen := make(map[string]bool)
	for name, code := range result.Codes {
		require.Regexp(t, codePattern, code, "code for %s", name)
		require.False(t, seen[code], "code %s issued twice", code)
		seen[code] = true
	}
}

func TestCreateTeamsBatchSemantics(t *testing.T) {
	le := setupEngine(t)
	createTestTeam(t, "Taken", 0)

	result, err := le.CreateTeams([]string{"  Alpha  ", "", "Alpha", "Taken", "Bravo"})
	require.NoError(t, err)

	// names are trimmed, blanks and in-batch repeats skipped
	require.Equal(t, []string{"Alpha", "Bravo"}, result.Created)
	require.Equal(t, []string{"Taken"}, result.Duplicates)
	require.Contains(t, result.Codes, "Alpha")
	require.Contains(t, result.Codes, "Bravo")
	require.NotContains(t, result.Codes, "Taken")

	team, err := db.GetTeamByCode(result.Codes["Alpha"])
	require.NoError(t, err)
	require.Equal(t, "Alpha", team.Name)
	require.Equal(t, 0, team.Points)
}

func TestDebitAsAdmin(t *testing.T) {
	le := setupEngine(t)
	team := createTestTeam(t, "Admin Target", 50)

	// any positive amount goes, under the fixed label and without a token
	entry, err := le.Debit(team.ID, 7, "ignored", true)
	require.NoError(t, err)
	require.NotNil(t, entry.Label)
	require.Equal(t, AdminDebitLabel, *entry.Label)
	require.Empty(t, entry.Token)
	require.Equal(t, 43, entry.BalanceAfter)

	_, err = le.Debit(team.ID, 0, "", true)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = le.Debit(team.ID, -5, "", true)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDebitSelfServiceMatchesCatalog(t *testing.T) {
	le := setupEngine(t)
	team := createTestTeam(t, "Buyer", 100)

	entry, err := le.Debit(team.ID, 25, "  Coffee  ", false)
	require.NoError(t, err)
	require.NotNil(t, entry.Label)
	require.Equal(t, "Coffee", *entry.Label)
	require.NotEmpty(t, entry.Token)
	require.Equal(t, 100, entry.BalanceBefore)
	require.Equal(t, 75, entry.BalanceAfter)

	// a second purchase gets its own receipt token
	again, err := le.Debit(team.ID, 25, "Coffee", false)
	require.NoError(t, err)
	require.NotEqual(t, entry.Token, again.Token)

	// amounts outside the catalog are rejected before touching the store
	_, err = le.Debit(team.ID, 26, "Coffee", false)
	require.ErrorIs(t, err, ErrInvalidAmount)

	team, err = db.GetTeam(team.ID)
	require.NoError(t, err)
	require.Equal(t, 50, team.Points)
}

func TestDebitSelfServiceBlankLabel(t *testing.T) {
	le := setupEngine(t)
	team := createTestTeam(t, "Quiet Buyer", 50)

	entry, err := le.Debit(team.ID, 50, "   ", false)
	require.NoError(t, err)
	require.Nil(t, entry.Label)
}

func TestCreditValidation(t *testing.T) {
	le := setupEngine(t)
	team := createTestTeam(t, "Credit Target", 0)

	_, err := le.CreditTeam(team.ID, 0, "bonus")
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = le.CreditTeam(team.ID, -10, "bonus")
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.ErrorIs(t, le.CreditAll(0, "bonus"), ErrInvalidAmount)

	entry, err := le.CreditTeam(team.ID, 40, "bonus")
	require.NoError(t, err)
	require.Equal(t, db.KindCredit, entry.Kind)
	require.Equal(t, 40, entry.BalanceAfter)
}

func TestRunTickAppliesStoredSettings(t *testing.T) {
	le := setupEngine(t)
	require.NoError(t, db.SeedSettings(db.Settings{PointsPerTick: 100, TickInterval: 60}))
	team := createTestTeam(t, "Ticked", 0)

	// a settings change takes effect on the very next cycle
	newPoints, newInterval := 40, 5
	require.NoError(t, le.UpdateSettings(&newPoints, &newInterval))

	next := le.runTick()
	require.Equal(t, 5*time.Second, next)

	team, err := db.GetTeam(team.ID)
	require.NoError(t, err)
	require.Equal(t, 40, team.Points)

	// tick grants carry no ledger entries
	entries, err := db.GetTeamTransactions(team.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStartupIntervalPrefersStoredValue(t *testing.T) {
	le := setupEngine(t)
	require.NoError(t, db.SeedSettings(db.Settings{PointsPerTick: 100, TickInterval: 60}))

	// a restart must pick up the persisted interval for its first sleep
	newInterval := 5
	require.NoError(t, le.UpdateSettings(nil, &newInterval))
	require.Equal(t, 5*time.Second, le.startupInterval())
}

func TestStartupIntervalFallsBackToConfig(t *testing.T) {
	le := setupEngine(t)

	// unseeded store, the compiled-in default applies
	require.Equal(t, 60*time.Second, le.startupInterval())
}

func TestRunTickClampsBadStoredValues(t *testing.T) {
	le := setupEngine(t)
	require.NoError(t, db.SeedSettings(db.Settings{PointsPerTick: 100, TickInterval: 60}))
	team := createTestTeam(t, "Clamped", 0)

	// out-of-range values written under the engine must not make the
	// loop spin or drain balances
	require.NoError(t, db.UpdateSetting(db.SettingTickInterval, 0))
	require.NoError(t, db.UpdateSetting(db.SettingPointsPerTick, -5))

	next := le.runTick()
	require.Equal(t, 60*time.Second, next)

	team, err := db.GetTeam(team.ID)
	require.NoError(t, err)
	require.Equal(t, 100, team.Points)
}

func TestUpdateSettingsValidation(t *testing.T) {
	le := setupEngine(t)
	require.NoError(t, db.SeedSettings(db.Settings{PointsPerTick: 100, TickInterval: 60}))

	bad := -1
	require.ErrorIs(t, le.UpdateSettings(&bad, nil), ErrInvalidSetting)
	zero := 0
	require.ErrorIs(t, le.UpdateSettings(nil, &zero), ErrInvalidSetting)

	// a rejected update leaves every field untouched
	goodPoints := 55
	require.ErrorIs(t, le.UpdateSettings(&goodPoints, &zero), ErrInvalidSetting)
	settings, err := db.GetSettings()
	require.NoError(t, err)
	require.Equal(t, 100, settings.PointsPerTick)
	require.Equal(t, 60, settings.TickInterval)

	// partial updates only write what was provided
	require.NoError(t, le.UpdateSettings(&goodPoints, nil))
	settings, err = db.GetSettings()
	require.NoError(t, err)
	require.Equal(t, 55, settings.PointsPerTick)
	require.Equal(t, 60, settings.TickInterval)
}

func TestListTransactionsClamping(t *testing.T) {
	le := setupEngine(t)
	team := createTestTeam(t, "Pager", 0)
	for i := 0; i < 3; i++ {
		_, err := le.CreditTeam(team.ID, 10, "bonus")
		require.NoError(t, err)
	}

	page, err := le.ListTransactions(0, "", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Page)
	require.Equal(t, defaultPerPage, page.PerPage)
	require.Equal(t, int64(3), page.Total)
	require.Equal(t, 1, page.TotalPages)

	page, err = le.ListTransactions(0, "", 1, 100000)
	require.NoError(t, err)
	require.Equal(t, maxPerPage, page.PerPage)
}

// TestLedgerWorkedExample walks one team through a full cycle: a tick
// grant, a catalog purchase, and an overdraft attempt.
func TestLedgerWorkedExample(t *testing.T) {
	le := setupEngine(t)
	require.NoError(t, db.SeedSettings(db.Settings{PointsPerTick: 100, TickInterval: 60}))

	result, err := le.CreateTeams([]string{"Alpha"})
	require.NoError(t, err)
	team, err := db.GetTeamByCode(result.Codes["Alpha"])
	require.NoError(t, err)

	le.runTick()
	team, err = db.GetTeam(team.ID)
	require.NoError(t, err)
	require.Equal(t, 100, team.Points)

	entry, err := le.Debit(team.ID, 25, "Coffee", false)
	require.NoError(t, err)
	require.Equal(t, 100, entry.BalanceBefore)
	require.Equal(t, 75, entry.BalanceAfter)

	_, err = le.Debit(team.ID, 100, "", true)
	require.ErrorIs(t, err, db.ErrInsufficientBalance)

	team, err = db.GetTeam(team.ID)
	require.NoError(t, err)
	require.Equal(t, 75, team.Points)

	entries, err := db.GetTeamTransactions(team.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
