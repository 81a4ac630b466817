package main

import "github.com/noah-isme/toko-pricing/internal/catalog"

func seedProducts() []catalog.Product {
	return []catalog.Product{
		catalog.MustProduct("SHIRT", "Shirt", 2500),
		catalog.MustProduct("SOCKS", "Socks", 500),
		catalog.MustProduct("MUG", "Mug", 1200, catalog.WithDiscountPrice(900)),
		catalog.MustProduct("CAP", "Cap", 1800),
		catalog.MustProduct("HOODIE", "Hoodie", 5500, catalog.WithDiscountPrice(4400)),
	}
}
