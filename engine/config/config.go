package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

type ConfigSettings struct {
	// General settings every deployment must set
	RequiredSettings RequiredConfig `toml:"RequiredSettings,omitempty" json:"RequiredSettings,omitempty"`

	// Optional settings
	MiscSettings MiscConfig `toml:"MiscSettings,omitempty" json:"MiscSettings,omitempty"`

	// Spend catalog
	SpendSettings SpendConfig `toml:"SpendSettings,omitempty" json:"SpendSettings,omitempty"`
}

type RequiredConfig struct {
	EventName    string
	DBConnectURL string
	BindAddress  string

	// AdminCode is the shared administrator login code
	AdminCode string
	// SessionSecret signs session cookies and auth tokens
	SessionSecret string
}

type MiscConfig struct {
	Port    int
	LogFile string

	// Compiled-in defaults for the settings store; once the store is
	// seeded these are only used when the store cannot be read.
	PointsPerTick int
	TickInterval  int

	// TickLockFile is the advisory lock deciding which worker process
	// runs the tick loop.
	TickLockFile string
}

type SpendConfig struct {
	// Options is the flat list of amounts an administrator may debit
	// from the admin panel.
	Options []int

	// Named is the self-service catalog teams purchase from.
	Named []SpendItem `toml:"Named,omitempty" json:"Named,omitempty"`
}

type SpendItem struct {
	Name string
	Cost int
}

// Load in a config
func (conf *ConfigSettings) SetConfig(path string) error {
	tempConf := ConfigSettings{}
	fileContent, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("configuration file (%s) not found: %w", path, err)
	}

	if md, err := toml.Decode(string(fileContent), &tempConf); err != nil {
		return err
	} else {
		for _, undecoded := range md.Undecoded() {
			slog.Warn("undecoded configuration key \"" + undecoded.String() + "\" will not be used.")
		}
	}

	// check the configuration and set defaults
	if err := checkConfig(&tempConf); err != nil {
		log.Fatalln("configuration file ("+path+") is invalid:", err)
	}

	// if we're here, the config is valid
	*conf = tempConf

	return nil
}

// general error checking
func checkConfig(conf *ConfigSettings) error {
	var errResult error

	// required settings

	if conf.RequiredSettings.EventName == "" {
		errResult = errors.Join(errResult, errors.New("event title blank or not specified"))
	}

	if conf.RequiredSettings.DBConnectURL == "" {
		errResult = errors.Join(errResult, errors.New("no db connect url specified"))
	}

	if conf.RequiredSettings.BindAddress == "" {
		errResult = errors.Join(errResult, errors.New("no bind address specified"))
	}

	if conf.RequiredSettings.AdminCode == "" {
		errResult = errors.Join(errResult, errors.New("no admin code specified"))
	}

	if conf.RequiredSettings.SessionSecret == "" {
		errResult = errors.Join(errResult, errors.New("no session secret specified"))
	}

	// optional settings

	if conf.MiscSettings.Port == 0 {
		conf.MiscSettings.Port = 80
	}

	if conf.MiscSettings.PointsPerTick == 0 {
		conf.MiscSettings.PointsPerTick = 100
	}

	if conf.MiscSettings.PointsPerTick < 0 {
		errResult = errors.Join(errResult, errors.New("points per tick must not be negative"))
	}

	if conf.MiscSettings.TickInterval == 0 {
		conf.MiscSettings.TickInterval = 60
	}

	if conf.MiscSettings.TickInterval < 1 {
		errResult = errors.Join(errResult, errors.New("tick interval must be at least 1 second"))
	}

	if conf.MiscSettings.TickLockFile == "" {
		conf.MiscSettings.TickLockFile = "/tmp/tally_tick.lock"
	}

	if len(conf.SpendSettings.Options) == 0 {
		conf.SpendSettings.Options = []int{5, 10, 25, 50}
	}

	for _, amount := range conf.SpendSettings.Options {
		if amount <= 0 {
			errResult = errors.Join(errResult, fmt.Errorf("spend option %d must be positive", amount))
		}
	}

	// check for duplicate catalog names
	dupeItemMap := make(map[string]bool)
	for _, item := range conf.SpendSettings.Named {
		if item.Name == "" {
			errResult = errors.Join(errResult, errors.New("a spend item is missing a name"))
		}
		if item.Cost <= 0 {
			errResult = errors.Join(errResult, fmt.Errorf("spend item %s must have a positive cost", item.Name))
		}
		if _, ok := dupeItemMap[item.Name]; ok {
			errResult = errors.Join(errResult, errors.New("duplicate spend item name found: "+item.Name))
		}
		dupeItemMap[item.Name] = true
	}

	// errResult is nil by default if no errors occured
	return errResult
}
