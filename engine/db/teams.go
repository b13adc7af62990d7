package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type TeamSchema struct {
	ID           uint
	Name         string `gorm:"unique"`
	Code         string `gorm:"uniqueIndex"` // join code teams log in with
	Points       int
	CreatedAt    time.Time
	Transactions []TransactionSchema `gorm:"foreignKey:TeamID"` // get ledger entries who belong to this team
}

func CreateTeam(team TeamSchema) (TeamSchema, error) {
	result := db.Table("team_schemas").Create(&team)
	if result.Error != nil {
		return TeamSchema{}, result.Error
	}
	return team, nil
}

func GetTeams() ([]TeamSchema, error) {
	var teams []TeamSchema
	result := db.Table("team_schemas").Order("name").Find(&teams)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return teams, nil
		} else {
			return nil, result.Error
		}
	}
	return teams, nil
}

func GetTeam(teamID uint) (TeamSchema, error) {
	var team TeamSchema
	result := db.Table("team_schemas").First(&team, teamID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return TeamSchema{}, ErrTeamNotFound
		}
		return TeamSchema{}, result.Error
	}
	return team, nil
}

func GetTeamByCode(code string) (TeamSchema, error) {
	var team TeamSchema
	result := db.Table("team_schemas").Where("code = ?", code).First(&team)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return TeamSchema{}, ErrTeamNotFound
		}
		return TeamSchema{}, result.Error
	}
	return team, nil
}

func TeamCodeExists(code string) (bool, error) {
	var count int64
	result := db.Table("team_schemas").Where("code = ?", code).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// CreditAll is the un-ledgered periodic grant. It bumps every balance
// in a single statement and records nothing in the transaction log.
// Zero is a no-op; a negative grant is refused.
func CreditAll(amount int) error {
	if amount < 0 {
		return fmt.Errorf("refusing negative grant %d", amount)
	}
	if amount == 0 {
		return nil
	}
	return withRetry(func() error {
		result := db.Table("team_schemas").Where("1 = 1").Update("points", gorm.Expr("points + ?", amount))
		return result.Error
	})
}

// ResetBalances zeroes every team balance. No ledger entries are
// written, so the log intentionally stops reconciling to zero-origin
// balances after a reset.
func ResetBalances() error {
	return withRetry(func() error {
		result := db.Table("team_schemas").Where("1 = 1").Update("points", 0)
		return result.Error
	})
}

// DeleteTeam removes a team and all of its ledger entries as one unit.
func DeleteTeam(teamID uint) error {
	return withRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var team TeamSchema
			if result := tx.Table("team_schemas").First(&team, teamID); result.Error != nil {
				if errors.Is(result.Error, gorm.ErrRecordNotFound) {
					return ErrTeamNotFound
				}
				return result.Error
			}

			if result := tx.Table("transaction_schemas").Where("team_id = ?", teamID).Delete(&TransactionSchema{}); result.Error != nil {
				return result.Error
			}

			if result := tx.Table("team_schemas").Delete(&TeamSchema{}, teamID); result.Error != nil {
				return result.Error
			}

			return nil
		})
	})
}
