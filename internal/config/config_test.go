package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBrokenRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Simulation)
	}{
		{"zero days", func(c *Simulation) { c.NumDays = 0 }},
		{"cost range inverted", func(c *Simulation) { c.Seller1.CostMin = 80; c.Seller1.CostMax = 60 }},
		{"negative inventory", func(c *Simulation) { c.Seller2.InventoryMin = -1 }},
		{"ratio above one", func(c *Simulation) { c.LongTermRatio = 1.2 }},
		{"window range inverted", func(c *Simulation) { c.ShortTerm.WindowMin = 30; c.ShortTerm.WindowMax = 10 }},
		{"zero rounds", func(c *Simulation) { c.MaxNegotiationRounds = 0 }},
		{"negotiation day out of range", func(c *Simulation) { c.NegotiationDays = []int{101} }},
		{"negative transport rate", func(c *Simulation) { c.TransportCostPerUnit = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestIsNegotiationDay(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.IsNegotiationDay(1))
	assert.True(t, cfg.IsNegotiationDay(81))
	assert.False(t, cfg.IsNegotiationDay(2))
	assert.False(t, cfg.IsNegotiationDay(100))
}

func TestLoadAppliesDefaultsUnderOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "experiment-7",
		"num_days": 30,
		"seed": 7,
		"negotiation_days": [1, 15],
		"second_wholesaler": true
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "experiment-7", cfg.Name)
	assert.Equal(t, 30, cfg.NumDays)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, []int{1, 15}, cfg.NegotiationDays)
	assert.True(t, cfg.SecondWholesaler)

	// Untouched fields keep their defaults.
	assert.Equal(t, 400, cfg.TotalShoppers)
	assert.Equal(t, 10, cfg.MaxNegotiationRounds)
	assert.Equal(t, 50000.0, cfg.WholesalerStartingCash)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"num_days": 10, "negotiation_days": [40]}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
