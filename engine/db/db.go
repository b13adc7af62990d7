package db

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db *gorm.DB
)

const (
	busyRetries = 5
	busyBackoff = 50 * time.Millisecond
)

func dialector(connectURL string) gorm.Dialector {
	if strings.HasPrefix(connectURL, "sqlite:") {
		split := strings.SplitN(connectURL, ":", 2)
		filename := split[1]
		return sqlite.Open(fmt.Sprintf("%s?mode=rwc&_busy_timeout=5000", filename))
	} else {
		return postgres.Open(connectURL)
	}
}

func Connect(connectURL string) {
	var err error

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			IgnoreRecordNotFoundError: true, // Ignore ErrRecordNotFound error for logger
		},
	)

	db, err = gorm.Open(dialector(connectURL), &gorm.Config{
		TranslateError: true,
		Logger:         newLogger,
	})
	if err != nil {
		log.Fatalf("Failed to connect database %s: %v", connectURL, err)
	}

	slog.Info("Connected to DB")

	err = db.AutoMigrate(&TeamSchema{}, &TransactionSchema{}, &SettingSchema{})
	if err != nil {
		log.Fatalln("Failed to auto migrate:", err)
	}
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// withRetry runs fn, retrying a bounded number of times with backoff
// when the store reports write-lock contention. Once retries are
// exhausted the contention is surfaced as ErrStoreBusy.
func withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		err = fn()
		if !isBusy(err) {
			return err
		}
		time.Sleep(busyBackoff * time.Duration(attempt+1))
	}
	slog.Warn("store busy after retries", "error", err)
	return ErrStoreBusy
}
