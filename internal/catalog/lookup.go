package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrNotFound indicates the requested SKU is not in the catalog.
var ErrNotFound = errors.New("product not found")

// Lookup resolves products by SKU.
type Lookup interface {
	Product(ctx context.Context, sku string) (Product, error)
}

// Memory is an in-process catalog keyed by SKU.
type Memory struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewMemory builds a catalog seeded with the provided products.
func NewMemory(products ...Product) (*Memory, error) {
	m := &Memory{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if err := m.Put(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Put validates and stores a product, replacing any previous entry for the SKU.
func (m *Memory) Put(p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.SKU] = p.Clone()
	return nil
}

// Product implements Lookup.
func (m *Memory) Product(ctx context.Context, sku string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[sku]
	if !ok {
		return Product{}, fmt.Errorf("sku %q: %w", sku, ErrNotFound)
	}
	return p.Clone(), nil
}

// Len returns the number of products held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

// List returns every product ordered by SKU.
func (m *Memory) List() []Product {
	m.mu.RLock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p.Clone())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// LoadJSON builds a catalog from a JSON array of products.
func LoadJSON(r io.Reader) (*Memory, error) {
	var products []Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewMemory(products...)
}
