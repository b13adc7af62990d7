package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConf() ConfigSettings {
	return ConfigSettings{
		RequiredSettings: RequiredConfig{
			EventName:     "test event",
			DBConnectURL:  "sqlite:test.db",
			BindAddress:   "127.0.0.1",
			AdminCode:     "admin123",
			SessionSecret: "secret",
		},
	}
}

func TestCheckConfigDefaults(t *testing.T) {
	conf := validConf()
	require.NoError(t, checkConfig(&conf))

	assert.Equal(t, 80, conf.MiscSettings.Port)
	assert.Equal(t, 100, conf.MiscSettings.PointsPerTick)
	assert.Equal(t, 60, conf.MiscSettings.TickInterval)
	assert.Equal(t, "/tmp/tally_tick.lock", conf.MiscSettings.TickLockFile)
	assert.Equal(t, []int{5, 10, 25, 50}, conf.SpendSettings.Options)
}

func TestCheckConfigMissingRequired(t *testing.T) {
	conf := ConfigSettings{}
	err := checkConfig(&conf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no db connect url specified")
	assert.Contains(t, err.Error(), "no admin code specified")
	assert.Contains(t, err.Error(), "no session secret specified")
}

func TestCheckConfigRejectsBadSpendItems(t *testing.T) {
	conf := validConf()
	conf.SpendSettings.Named = []SpendItem{
		{Name: "Old office", Cost: 2},
		{Name: "Old office", Cost: 5},
		{Name: "", Cost: 3},
		{Name: "Scada", Cost: 0},
	}
	err := checkConfig(&conf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate spend item name found: Old office")
	assert.Contains(t, err.Error(), "missing a name")
	assert.Contains(t, err.Error(), "Scada must have a positive cost")
}

func TestCheckConfigRejectsNegativeTickSettings(t *testing.T) {
	conf := validConf()
	conf.MiscSettings.PointsPerTick = -5
	assert.Error(t, checkConfig(&conf))

	conf = validConf()
	conf.MiscSettings.TickInterval = -1
	assert.Error(t, checkConfig(&conf))
}

func TestCheckConfigKeepsExplicitValues(t *testing.T) {
	conf := validConf()
	conf.MiscSettings.PointsPerTick = 7
	conf.MiscSettings.TickInterval = 5
	conf.SpendSettings.Options = []int{1, 2}
	require.NoError(t, checkConfig(&conf))

	assert.Equal(t, 7, conf.MiscSettings.PointsPerTick)
	assert.Equal(t, 5, conf.MiscSettings.TickInterval)
	assert.Equal(t, []int{1, 2}, conf.SpendSettings.Options)
}
