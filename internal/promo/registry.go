package promo

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

var (
	// ErrUnknownCode is returned when a code is not registered.
	ErrUnknownCode = errors.New("unknown promo code")
	// ErrRegistryFrozen is returned when registering after Freeze.
	ErrRegistryFrozen = errors.New("promo registry is frozen")
	// ErrInvalidDefinition is returned for malformed code definitions.
	ErrInvalidDefinition = errors.New("invalid promo definition")
)

// FirstTime is the stock first-order promotion: 10% off merchandise, shipping excluded.
const FirstTime = "FIRSTTIME"

// Resolver maps a code to its rule.
type Resolver interface {
	Resolve(code string) (Rule, bool)
}

// Registry holds promo codes. It is populated at startup and frozen before use;
// Resolve is safe for concurrent callers.
type Registry struct {
	mu     sync.RWMutex
	rules  map[string]Rule
	frozen bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{rules: map[string]Rule{}}
}

// DefaultRegistry returns a frozen registry containing the stock codes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(FirstTime, PercentOff{Bps: 1000})
	r.Freeze()
	return r
}

// Register adds a code. Codes are case-sensitive; re-registering replaces the rule.
func (r *Registry) Register(code string, rule Rule) error {
	if strings.TrimSpace(code) == "" || code != strings.TrimSpace(code) {
		return fmt.Errorf("code %q: %w", code, ErrInvalidDefinition)
	}
	if rule == nil {
		return fmt.Errorf("code %q has no rule: %w", code, ErrInvalidDefinition)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	r.rules[code] = rule
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(code string, rule Rule) {
	if err := r.Register(code, rule); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Resolve implements Resolver.
func (r *Registry) Resolve(code string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[code]
	return rule, ok
}

// Codes lists registered codes in lexical order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rules))
	for code := range r.rules {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// LoadDefinitions registers every definition in defs. Each definition has the form
// CODE=kind[:value[:minspend]] where kind is percent, fixed or freeship; percent
// values are decimal percentages and fixed/minspend values are minor units.
func (r *Registry) LoadDefinitions(defs []string) error {
	for _, def := range defs {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}
		code, rule, err := ParseDefinition(def)
		if err != nil {
			return err
		}
		if err := r.Register(code, rule); err != nil {
			return err
		}
	}
	return nil
}

// ParseDefinition parses a single CODE=kind[:value[:minspend]] definition.
func ParseDefinition(def string) (string, Rule, error) {
	code, body, ok := strings.Cut(strings.TrimSpace(def), "=")
	code = strings.TrimSpace(code)
	if !ok || code == "" {
		return "", nil, fmt.Errorf("%q: expected CODE=kind: %w", def, ErrInvalidDefinition)
	}
	parts := strings.Split(body, ":")
	kind := Kind(strings.ToLower(strings.TrimSpace(parts[0])))
	args := parts[1:]

	minSpend := func(idx int) (pricing.Money, error) {
		if len(args) <= idx {
			return 0, nil
		}
		return parseMinor(args[idx])
	}

	switch kind {
	case KindPercentOff:
		if len(args) < 1 || len(args) > 2 {
			return "", nil, fmt.Errorf("%q: percent needs a value: %w", def, ErrInvalidDefinition)
		}
		bps, err := pricing.ParseBps(strings.TrimSpace(args[0]))
		if err != nil || bps <= 0 || bps > pricing.BpsScale {
			return "", nil, fmt.Errorf("%q: percent must be in (0, 100]: %w", def, ErrInvalidDefinition)
		}
		floor, err := minSpend(1)
		if err != nil {
			return "", nil, fmt.Errorf("%q: %w", def, err)
		}
		return code, PercentOff{Bps: bps, MinSpend: floor}, nil
	case KindFixedAmountOff:
		if len(args) < 1 || len(args) > 2 {
			return "", nil, fmt.Errorf("%q: fixed needs an amount: %w", def, ErrInvalidDefinition)
		}
		amount, err := parseMinor(args[0])
		if err != nil || amount <= 0 {
			return "", nil, fmt.Errorf("%q: amount must be positive: %w", def, ErrInvalidDefinition)
		}
		floor, err := minSpend(1)
		if err != nil {
			return "", nil, fmt.Errorf("%q: %w", def, err)
		}
		return code, FixedAmountOff{Amount: amount, MinSpend: floor}, nil
	case KindFreeShipping:
		if len(args) > 1 {
			return "", nil, fmt.Errorf("%q: freeship takes at most a minimum spend: %w", def, ErrInvalidDefinition)
		}
		floor, err := minSpend(0)
		if err != nil {
			return "", nil, fmt.Errorf("%q: %w", def, err)
		}
		return code, FreeShipping{MinSpend: floor}, nil
	default:
		return "", nil, fmt.Errorf("%q: unknown kind %q: %w", def, kind, ErrInvalidDefinition)
	}
}

func parseMinor(raw string) (pricing.Money, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, ErrInvalidDefinition)
	}
	return v, nil
}
