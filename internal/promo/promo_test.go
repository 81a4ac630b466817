package promo_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/promo"
)

func TestPercentOffExcludesShipping(t *testing.T) {
	rule := promo.PercentOff{Bps: 1000}
	got := rule.Apply(promo.Context{Subtotal: 3000, Shipping: 500})
	require.Equal(t, promo.Discount{Merchandise: 300}, got)
	require.Equal(t, promo.KindPercentOff, rule.Kind())
	require.Equal(t, "10% off merchandise", rule.String())
	require.Equal(t, "12.50% off merchandise", promo.PercentOff{Bps: 1250}.String())
}

func TestPercentOffRoundsHalfUp(t *testing.T) {
	rule := promo.PercentOff{Bps: 1000}
	require.Equal(t, int64(1), rule.Apply(promo.Context{Subtotal: 5}).Merchandise)
	require.Equal(t, int64(0), rule.Apply(promo.Context{Subtotal: 4}).Merchandise)
	require.Equal(t, int64(100), rule.Apply(promo.Context{Subtotal: 995}).Merchandise)
}

func TestRulesRespectMinimumSpend(t *testing.T) {
	ctx := promo.Context{Subtotal: 4999, Shipping: 700}
	require.Zero(t, promo.PercentOff{Bps: 1000, MinSpend: 5000}.Apply(ctx))
	require.Zero(t, promo.FixedAmountOff{Amount: 1000, MinSpend: 5000}.Apply(ctx))
	require.Zero(t, promo.FreeShipping{MinSpend: 5000}.Apply(ctx))

	ctx.Subtotal = 5000
	require.Equal(t, int64(500), promo.PercentOff{Bps: 1000, MinSpend: 5000}.Apply(ctx).Merchandise)
	require.Equal(t, int64(700), promo.FreeShipping{MinSpend: 5000}.Apply(ctx).Shipping)
}

func TestFixedAmountOffIsCappedAtSubtotal(t *testing.T) {
	rule := promo.FixedAmountOff{Amount: 1000}
	require.Equal(t, promo.Discount{Merchandise: 400}, rule.Apply(promo.Context{Subtotal: 400}))
	require.Equal(t, promo.Discount{}, rule.Apply(promo.Context{}))
	require.Equal(t, "10.00 off merchandise", rule.String())
}

func TestFreeShippingOnlyTouchesShipping(t *testing.T) {
	got := promo.FreeShipping{}.Apply(promo.Context{Subtotal: 2500, Shipping: 500})
	require.Equal(t, promo.Discount{Shipping: 500}, got)
	require.Zero(t, promo.FreeShipping{}.Apply(promo.Context{Subtotal: 2500}))
}

func TestRegistryResolveIsCaseSensitive(t *testing.T) {
	reg := promo.DefaultRegistry()

	rule, ok := reg.Resolve(promo.FirstTime)
	require.True(t, ok)
	require.Equal(t, promo.PercentOff{Bps: 1000}, rule)

	_, ok = reg.Resolve("firsttime")
	require.False(t, ok)
	_, ok = reg.Resolve("NOPE")
	require.False(t, ok)
}

func TestRegistryFreeze(t *testing.T) {
	reg := promo.NewRegistry()
	require.NoError(t, reg.Register("TENOFF", promo.FixedAmountOff{Amount: 1000}))
	reg.Freeze()
	require.ErrorIs(t, reg.Register("LATE", promo.FreeShipping{}), promo.ErrRegistryFrozen)
	require.Equal(t, []string{"TENOFF"}, reg.Codes())
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	reg := promo.NewRegistry()
	require.ErrorIs(t, reg.Register("", promo.FreeShipping{}), promo.ErrInvalidDefinition)
	require.ErrorIs(t, reg.Register(" PAD ", promo.FreeShipping{}), promo.ErrInvalidDefinition)
	require.ErrorIs(t, reg.Register("NIL", nil), promo.ErrInvalidDefinition)
}

func TestRegistryConcurrentResolve(t *testing.T) {
	reg := promo.DefaultRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := reg.Resolve(promo.FirstTime)
			require.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestParseDefinition(t *testing.T) {
	cases := []struct {
		def  string
		code string
		rule promo.Rule
	}{
		{"FIRSTTIME=percent:10", "FIRSTTIME", promo.PercentOff{Bps: 1000}},
		{"HALF = percent:12.5:2000", "HALF", promo.PercentOff{Bps: 1250, MinSpend: 2000}},
		{"TENOFF=fixed:1000:5000", "TENOFF", promo.FixedAmountOff{Amount: 1000, MinSpend: 5000}},
		{"SHIPFREE=freeship", "SHIPFREE", promo.FreeShipping{}},
		{"BIGSHIP=FreeShip:7500", "BIGSHIP", promo.FreeShipping{MinSpend: 7500}},
	}
	for _, tc := range cases {
		t.Run(tc.def, func(t *testing.T) {
			code, rule, err := promo.ParseDefinition(tc.def)
			require.NoError(t, err)
			require.Equal(t, tc.code, code)
			require.Equal(t, tc.rule, rule)
		})
	}
}

func TestParseDefinitionErrors(t *testing.T) {
	for _, def := range []string{
		"NOEQUALS",
		"=percent:10",
		"X=percent",
		"X=percent:0",
		"X=percent:150",
		"X=percent:abc",
		"X=fixed",
		"X=fixed:-5",
		"X=fixed:10.5",
		"X=freeship:1:2",
		"X=bogo:1",
	} {
		t.Run(def, func(t *testing.T) {
			_, _, err := promo.ParseDefinition(def)
			require.ErrorIs(t, err, promo.ErrInvalidDefinition)
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	reg := promo.NewRegistry()
	require.NoError(t, reg.LoadDefinitions([]string{"FIRSTTIME=percent:10", "", "SHIPFREE=freeship"}))
	require.Equal(t, []string{"FIRSTTIME", "SHIPFREE"}, reg.Codes())

	require.Error(t, reg.LoadDefinitions([]string{"BROKEN"}))
}
