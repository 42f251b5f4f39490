package shopper

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/commodity-market/internal/config"
)

func TestWillingToPayRisesThroughWindow(t *testing.T) {
	r := &Record{
		ID: "LT_0001", Type: LongTerm,
		DemandRemaining: 5,
		WindowStart:     10, WindowEnd: 20,
		BasePrice: 90, MaxPrice: 120, UrgencyFactor: 1.0,
	}

	assert.Equal(t, 90, r.WillingToPay(10), "window start pays base price")
	assert.Equal(t, 105, r.WillingToPay(15), "linear urgency at midpoint")
	assert.Equal(t, 120, r.WillingToPay(20), "window end pays max price")
}

func TestWillingToPayUrgencyExponent(t *testing.T) {
	r := &Record{
		WindowStart: 0, WindowEnd: 10,
		BasePrice: 100, MaxPrice: 140, UrgencyFactor: 2.0,
	}

	// progress 0.5 squared → 0.25 of the range.
	assert.Equal(t, 110, r.WillingToPay(5))
}

func TestWillingToPayZeroLengthWindow(t *testing.T) {
	r := &Record{
		WindowStart: 7, WindowEnd: 7,
		BasePrice: 90, MaxPrice: 130, UrgencyFactor: 1.5,
	}
	assert.Equal(t, 130, r.WillingToPay(7), "zero-length window means maximum urgency")
}

func TestActiveOn(t *testing.T) {
	r := &Record{WindowStart: 5, WindowEnd: 10, DemandRemaining: 2}

	assert.False(t, r.ActiveOn(4))
	assert.True(t, r.ActiveOn(5))
	assert.True(t, r.ActiveOn(10))
	assert.False(t, r.ActiveOn(11))

	r.DemandRemaining = 0
	assert.False(t, r.ActiveOn(7), "exhausted demand leaves the market")
}

func TestGeneratePopulationSegments(t *testing.T) {
	cfg := config.Default()
	cfg.TotalShoppers = 100
	cfg.LongTermRatio = 0.7

	shoppers := GeneratePopulation(cfg, rand.New(rand.NewSource(1)))
	require.Len(t, shoppers, 100)

	long, short := 0, 0
	for _, s := range shoppers {
		switch s.Type {
		case LongTerm:
			long++
		case ShortTerm:
			short++
		}
		assert.GreaterOrEqual(t, s.WindowStart, 1)
		assert.LessOrEqual(t, s.WindowEnd, cfg.NumDays)
		assert.Equal(t, s.TotalDemand, s.DemandRemaining)
		assert.Greater(t, s.MaxPrice, s.BasePrice)
	}
	assert.Equal(t, 70, long)
	assert.Equal(t, 30, short)
}

func TestGeneratePopulationDeterministic(t *testing.T) {
	cfg := config.Default()
	cfg.TotalShoppers = 50

	a := GeneratePopulation(cfg, rand.New(rand.NewSource(42)))
	b := GeneratePopulation(cfg, rand.New(rand.NewSource(42)))

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, *a[i], *b[i])
	}
}

func TestGeneratePopulationWindowsFitShortRuns(t *testing.T) {
	cfg := config.Default()
	cfg.NumDays = 5
	cfg.TotalShoppers = 40

	for _, s := range GeneratePopulation(cfg, rand.New(rand.NewSource(3))) {
		assert.GreaterOrEqual(t, s.WindowStart, 1)
		assert.LessOrEqual(t, s.WindowEnd, cfg.NumDays)
	}
}

func TestBuildDemandPoolExpandsAndSorts(t *testing.T) {
	db := []*Record{
		{ID: "A", DemandRemaining: 2, WindowStart: 1, WindowEnd: 10, BasePrice: 100, MaxPrice: 120, UrgencyFactor: 1},
		{ID: "B", DemandRemaining: 1, WindowStart: 1, WindowEnd: 10, BasePrice: 80, MaxPrice: 100, UrgencyFactor: 1},
		{ID: "C", DemandRemaining: 3, WindowStart: 5, WindowEnd: 10, BasePrice: 90, MaxPrice: 110, UrgencyFactor: 1}, // not active on day 1
	}

	pool := BuildDemandPool(db, 1, rand.New(rand.NewSource(1)))

	require.Len(t, pool, 3, "inactive shoppers are excluded")
	for i := 1; i < len(pool); i++ {
		assert.GreaterOrEqual(t, pool[i-1].WillingToPay, pool[i].WillingToPay)
	}
	assert.Equal(t, "A", pool[0].ShopperID)
	assert.Equal(t, "A", pool[1].ShopperID)
	assert.Equal(t, "B", pool[2].ShopperID)
}

func TestBuildDemandPoolUnitIDsUnique(t *testing.T) {
	db := []*Record{
		{ID: "A", DemandRemaining: 4, WindowStart: 1, WindowEnd: 10, BasePrice: 100, MaxPrice: 120, UrgencyFactor: 1},
	}
	pool := BuildDemandPool(db, 1, rand.New(rand.NewSource(1)))

	seen := map[string]bool{}
	for _, u := range pool {
		assert.False(t, seen[u.UnitID], "duplicate unit id %s", u.UnitID)
		seen[u.UnitID] = true
	}
}
