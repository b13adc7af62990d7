package db

import "errors"

var (
	ErrTeamNotFound        = errors.New("team not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSettingNotFound     = errors.New("setting not found")
	ErrStoreBusy           = errors.New("store busy")
)
