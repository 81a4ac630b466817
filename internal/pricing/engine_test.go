package pricing_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

func TestPercentOfRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name   string
		amount pricing.Money
		bps    int
		want   pricing.Money
	}{
		{"exact", 3000, 1000, 300},
		{"half rounds up", 5, 1000, 1},
		{"below half rounds down", 4, 1000, 0},
		{"fractional percent", 999, 1250, 125},
		{"zero rate", 2500, 0, 0},
		{"negative amount", -100, 1000, 0},
		{"full", 2500, 10000, 2500},
		{"above full is capped", 2500, 15000, 2500},
		{"large amount", math.MaxInt64 / 2, 5000, 2305843009213693952},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, pricing.PercentOf(tc.amount, tc.bps))
		})
	}
}

func TestAllocateProportional(t *testing.T) {
	require.Equal(t, []pricing.Money{250, 50}, pricing.Allocate(300, []pricing.Money{2500, 500}))
	require.Equal(t, []pricing.Money{0, 0}, pricing.Allocate(0, []pricing.Money{2500, 500}))
	require.Equal(t, []pricing.Money{}, pricing.Allocate(10, []pricing.Money{}))
}

func TestAllocateLargestRemainderTieBreaksEarlierFirst(t *testing.T) {
	// 10 split over three equal weights: 3 each with one unit left for the first line.
	require.Equal(t, []pricing.Money{4, 3, 3}, pricing.Allocate(10, []pricing.Money{100, 100, 100}))
	// remainders favour the heaviest line.
	require.Equal(t, []pricing.Money{33, 33, 34}, pricing.Allocate(100, []pricing.Money{300, 300, 301}))
}

func TestAllocateLargeAmounts(t *testing.T) {
	require.Equal(t,
		[]pricing.Money{500_000_000_000, 300_000_000_000},
		pricing.Allocate(800_000_000_000, []pricing.Money{5_000_000_000_000, 3_000_000_000_000}),
	)

	weights := []pricing.Money{3_000_000_000_000_000_000, 3_000_000_000_000_000_000, 2_999_999_999_999_999_999}
	shares := pricing.Allocate(1_000_000_000_000_000_000, weights)
	require.Equal(t, []pricing.Money{333333333333333334, 333333333333333333, 333333333333333333}, shares)
	require.Equal(t, pricing.Money(1_000_000_000_000_000_000), pricing.Sum(shares))
}

func TestAllocateCapsAtWeights(t *testing.T) {
	require.Equal(t, []pricing.Money{100, 0, 50}, pricing.Allocate(1000, []pricing.Money{100, 0, 50}))
}

func TestAllocateRandomInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := rng.Intn(6) + 1
		weights := make([]pricing.Money, n)
		for j := range weights {
			weights[j] = pricing.Money(rng.Intn(50000))
		}
		sum := pricing.Sum(weights)
		total := pricing.Money(rng.Int63n(sum + 1))

		shares := pricing.Allocate(total, weights)
		require.Len(t, shares, n)
		require.Equal(t, total, pricing.Sum(shares))
		for j, s := range shares {
			require.GreaterOrEqual(t, s, pricing.Money(0))
			require.LessOrEqual(t, s, weights[j])
		}
	}
}

func TestFormatAndParse(t *testing.T) {
	require.Equal(t, "25.00", pricing.Format(2500))
	require.Equal(t, "0.05", pricing.Format(5))

	bps, err := pricing.ParseBps("12.5")
	require.NoError(t, err)
	require.Equal(t, 1250, bps)

	cents, err := pricing.ParseMoney("4.99")
	require.NoError(t, err)
	require.Equal(t, pricing.Money(499), cents)

	_, err = pricing.ParseBps("ten")
	require.Error(t, err)
}
