package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"tally/engine/config"
	"tally/engine/db"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// AdminDebitLabel is the fixed label on administrator-initiated
	// debits; self-service debits carry the caller's label instead.
	AdminDebitLabel = "admin adjustment"

	maxPerPage     = 100
	defaultPerPage = 20
)

// LedgerEngine owns team balances and the append-only transaction log.
// Balances are only ever mutated through its settlement operations.
type LedgerEngine struct {
	Config *config.ConfigSettings
}

func NewEngine(conf *config.ConfigSettings) *LedgerEngine {
	return &LedgerEngine{Config: conf}
}

// Start runs the tick scheduler loop forever. Each cycle sleeps for the
// current interval, re-reads the settings store so an administrator's
// change takes effect from the next tick, grants the configured points
// to every team, and sleeps using the freshly read interval. Failures
// are logged and never terminate the loop.
func (le *LedgerEngine) Start() {
	interval := le.startupInterval()
	slog.Info("tick scheduler started", "interval", interval.String())
	for {
		time.Sleep(interval)
		interval = le.runTick()
	}
}

// startupInterval prefers the persisted interval so a restart honors
// an administrator's change before the first cycle, not after it.
func (le *LedgerEngine) startupInterval() time.Duration {
	settings, err := db.GetSettings()
	if err != nil || settings.TickInterval < 1 {
		return time.Duration(le.Config.MiscSettings.TickInterval) * time.Second
	}
	return time.Duration(settings.TickInterval) * time.Second
}

// runTick performs a single scheduler cycle and returns the interval to
// sleep before the next one.
func (le *LedgerEngine) runTick() time.Duration {
	settings, err := db.GetSettings()
	if err != nil {
		slog.Error("failed to read settings, using defaults for this tick", "error", err)
		settings = db.Settings{
			PointsPerTick: le.Config.MiscSettings.PointsPerTick,
			TickInterval:  le.Config.MiscSettings.TickInterval,
		}
	}

	// stored values can only go out of range through direct store
	// writes, but a zero interval would make the loop spin
	if settings.PointsPerTick < 0 {
		slog.Error("stored points per tick invalid, using default", "value", settings.PointsPerTick)
		settings.PointsPerTick = le.Config.MiscSettings.PointsPerTick
	}
	if settings.TickInterval < 1 {
		slog.Error("stored tick interval invalid, using default", "value", settings.TickInterval)
		settings.TickInterval = le.Config.MiscSettings.TickInterval
	}

	if err := db.CreditAll(settings.PointsPerTick); err != nil {
		slog.Error("tick grant failed", "error", err, "amount", settings.PointsPerTick)
	} else {
		slog.Debug("tick grant applied", "amount", settings.PointsPerTick)
		ticksTotal.Inc()
		tickPointsTotal.Add(float64(settings.PointsPerTick))
	}

	return time.Duration(settings.TickInterval) * time.Second
}

// CreateResult reports per-name outcomes of a batch team creation.
type CreateResult struct {
	Created    []string
	Duplicates []string
	Codes      map[string]string
}

// CreateTeams creates one team per distinct non-empty name, each with a
// fresh unique join code and a zero balance. Duplicate names are
// reported without aborting the rest of the batch.
func (le *LedgerEngine) CreateTeams(names []string) (CreateResult, error) {
	result := CreateResult{Created: []string{}, Duplicates: []string{}, Codes: map[string]string{}}

	seen := make(map[string]bool)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		code, err := le.newJoinCode()
		if err != nil {
			return result, err
		}

		if _, err := db.CreateTeam(db.TeamSchema{Name: name, Code: code}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Duplicates = append(result.Duplicates, name)
				continue
			}
			return result, err
		}
		result.Created = append(result.Created, name)
		result.Codes[name] = code
	}
	return result, nil
}

// newJoinCode samples the fixed alphabet until it finds a code no team
// holds. The code space is sparse so collisions cost O(1) retries.
func (le *LedgerEngine) newJoinCode() (string, error) {
	for {
		chars := make([]byte, codeLength)
		for i := range chars {
			chars[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(chars)

		exists, err := db.TeamCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// Debit spends points from one team. Administrators may debit any
// positive amount under a fixed label; self-service callers must match
// a named catalog cost and get a receipt token back.
func (le *LedgerEngine) Debit(teamID uint, amount int, label string, asAdmin bool) (db.TransactionSchema, error) {
	if asAdmin {
		if amount <= 0 {
			return db.TransactionSchema{}, ErrInvalidAmount
		}
		entry, err := db.CreateDebit(teamID, amount, strPtr(AdminDebitLabel), "")
		if err == nil {
			debitsTotal.Inc()
		}
		return entry, err
	}

	valid := false
	for _, item := range le.Config.SpendSettings.Named {
		if item.Cost == amount {
			valid = true
			break
		}
	}
	if !valid {
		return db.TransactionSchema{}, ErrInvalidAmount
	}

	var labelPtr *string
	if label = strings.TrimSpace(label); label != "" {
		labelPtr = &label
	}

	entry, err := db.CreateDebit(teamID, amount, labelPtr, uuid.NewString())
	if err == nil {
		debitsTotal.Inc()
	}
	return entry, err
}

// CreditTeam grants points to one team with a ledger entry.
func (le *LedgerEngine) CreditTeam(teamID uint, amount int, label string) (db.TransactionSchema, error) {
	if amount <= 0 {
		return db.TransactionSchema{}, ErrInvalidAmount
	}
	entry, err := db.CreateCredit(teamID, amount, strPtr(label))
	if err == nil {
		creditsTotal.Inc()
	}
	return entry, err
}

// CreditAll grants points to every team, one ledger entry per team.
func (le *LedgerEngine) CreditAll(amount int, label string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := db.CreditAllLedgered(amount, strPtr(label)); err != nil {
		return err
	}
	creditsTotal.Inc()
	return nil
}

// ResetAllBalances zeroes every balance without ledger entries,
// matching the blunt admin reset this replaces.
func (le *LedgerEngine) ResetAllBalances() error {
	slog.Info("resetting all balances")
	return db.ResetBalances()
}

func (le *LedgerEngine) ToggleChecked(transactionID uint) (bool, error) {
	return db.ToggleChecked(transactionID)
}

func (le *LedgerEngine) DeleteTeam(teamID uint) error {
	return db.DeleteTeam(teamID)
}

// ReportPage is one page of the transaction ledger.
type ReportPage struct {
	Entries    []db.TransactionSchema
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// ListTransactions returns a stable reverse-chronological page,
// optionally scoped to a team and filtered by a substring of the team
// name or receipt token. Page size is clamped to a sane maximum.
func (le *LedgerEngine) ListTransactions(teamID uint, query string, page int, perPage int) (ReportPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	entries, total, err := db.ListTransactions(teamID, query, page, perPage)
	if err != nil {
		return ReportPage{}, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return ReportPage{
		Entries:    entries,
		Total:      total,
		TotalPages: totalPages,
		Page:       page,
		PerPage:    perPage,
	}, nil
}

// UpdateSettings applies a partial settings update. Each provided field
// is validated independently; absent fields are left untouched.
func (le *LedgerEngine) UpdateSettings(pointsPerTick *int, tickInterval *int) error {
	// validate everything before writing anything
	if pointsPerTick != nil && *pointsPerTick < 0 {
		return fmt.Errorf("%w: points per tick must not be negative", ErrInvalidSetting)
	}
	if tickInterval != nil && *tickInterval < 1 {
		return fmt.Errorf("%w: tick interval must be at least 1 second", ErrInvalidSetting)
	}

	if pointsPerTick != nil {
		if err := db.UpdateSetting(db.SettingPointsPerTick, *pointsPerTick); err != nil {
			return err
		}
	}
	if tickInterval != nil {
		if err := db.UpdateSetting(db.SettingTickInterval, *tickInterval); err != nil {
			return err
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
