package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	KindDebit  = "debit"
	KindCredit = "credit"
)

// TransactionSchema is an append-only ledger entry. Cost is signed:
// positive for debits, negative for credits, so that
// balance_after = balance_before - cost always holds. Only Checked is
// ever mutated after creation.
type TransactionSchema struct {
	ID            uint
	TeamID        uint
	Team          TeamSchema
	Cost          int
	BalanceBefore int
	BalanceAfter  int
	Label         *string
	Kind          string
	Token         string // receipt token, empty for admin-initiated entries
	Checked       bool
	CreatedAt     time.Time
}

// CreateDebit decrements a team balance and appends the matching debit
// entry as one unit. The decrement is guarded so the balance check and
// the write cannot interleave with a concurrent settlement.
func CreateDebit(teamID uint, amount int, label *string, token string) (TransactionSchema, error) {
	var entry TransactionSchema
	err := withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var team TeamSchema
			if result := tx.Table("team_schemas").First(&team, teamID); result.Error != nil {
				if errors.Is(result.Error, gorm.ErrRecordNotFound) {
					return ErrTeamNotFound
				}
				return result.Error
			}

			result := tx.Table("team_schemas").
				Where("id = ? AND points >= ?", teamID, amount).
				Update("points", gorm.Expr("points - ?", amount))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrInsufficientBalance
			}

			// re-read inside the transaction for the post-decrement balance
			if result := tx.Table("team_schemas").First(&team, teamID); result.Error != nil {
				return result.Error
			}

			entry = TransactionSchema{
				TeamID:        teamID,
				Cost:          amount,
				BalanceBefore: team.Points + amount,
				BalanceAfter:  team.Points,
				Label:         label,
				Kind:          KindDebit,
				Token:         token,
			}
			if result := tx.Table("transaction_schemas").Create(&entry); result.Error != nil {
				return result.Error
			}
			return nil
		})
	})
	if err != nil {
		return TransactionSchema{}, err
	}
	return entry, nil
}

// CreateCredit increments a team balance and appends the matching
// credit entry as one unit.
func CreateCredit(teamID uint, amount int, label *string) (TransactionSchema, error) {
	var entry TransactionSchema
	err := withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			created, err := creditInTx(tx, teamID, amount, label)
			if err != nil {
				return err
			}
			entry = created
			return nil
		})
	})
	if err != nil {
		return TransactionSchema{}, err
	}
	return entry, nil
}

// CreditAllLedgered grants amount to every team and appends one credit
// entry per team, all in one transaction.
func CreditAllLedgered(amount int, label *string) error {
	return withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var teams []TeamSchema
			if result := tx.Table("team_schemas").Order("id").Find(&teams); result.Error != nil {
				return result.Error
			}
			for _, team := range teams {
				if _, err := creditInTx(tx, team.ID, amount, label); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func creditInTx(tx *gorm.DB, teamID uint, amount int, label *string) (TransactionSchema, error) {
	var team TeamSchema
	if result := tx.Table("team_schemas").First(&team, teamID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return TransactionSchema{}, ErrTeamNotFound
		}
		return TransactionSchema{}, result.Error
	}

	result := tx.Table("team_schemas").
		Where("id = ?", teamID).
		Update("points", gorm.Expr("points + ?", amount))
	if result.Error != nil {
		return TransactionSchema{}, result.Error
	}

	if result := tx.Table("team_schemas").First(&team, teamID); result.Error != nil {
		return TransactionSchema{}, result.Error
	}

	entry := TransactionSchema{
		TeamID:        teamID,
		Cost:          -amount,
		BalanceBefore: team.Points - amount,
		BalanceAfter:  team.Points,
		Label:         label,
		Kind:          KindCredit,
	}
	if result := tx.Table("transaction_schemas").Create(&entry); result.Error != nil {
		return TransactionSchema{}, result.Error
	}
	return entry, nil
}

// ToggleChecked flips the reviewed flag and returns the new value.
func ToggleChecked(transactionID uint) (bool, error) {
	var checked bool
	err := withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var entry TransactionSchema
			if result := tx.Table("transaction_schemas").First(&entry, transactionID); result.Error != nil {
				if errors.Is(result.Error, gorm.ErrRecordNotFound) {
					return ErrTransactionNotFound
				}
				return result.Error
			}
			checked = !entry.Checked
			result := tx.Table("transaction_schemas").Where("id = ?", transactionID).Update("checked", checked)
			return result.Error
		})
	})
	return checked, err
}

// ListTransactions returns one reverse-chronological page of ledger
// entries plus the total row count for the given filters. teamID 0
// means all teams; query substring-matches team name or receipt token.
func ListTransactions(teamID uint, query string, page int, perPage int) ([]TransactionSchema, int64, error) {
	base := db.Table("transaction_schemas").
		Joins("JOIN team_schemas ON team_schemas.id = transaction_schemas.team_id")
	if teamID != 0 {
		base = base.Where("transaction_schemas.team_id = ?", teamID)
	}
	if query != "" {
		base = base.Where("team_schemas.name LIKE ? OR transaction_schemas.token LIKE ?", "%"+query+"%", "%"+query+"%")
	}

	var total int64
	if result := base.Session(&gorm.Session{}).Count(&total); result.Error != nil {
		return nil, 0, result.Error
	}

	var entries []TransactionSchema
	result := base.Session(&gorm.Session{}).
		Preload("Team").
		Order("transaction_schemas.id desc").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&entries)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return entries, total, nil
}

// GetTeamTransactions returns every entry for one team in creation
// order. Mostly used to reconcile balances against the ledger.
func GetTeamTransactions(teamID uint) ([]TransactionSchema, error) {
	var entries []TransactionSchema
	result := db.Table("transaction_schemas").Where("team_id = ?", teamID).Order("id").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}
