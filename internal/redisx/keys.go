package redisx

import "time"

const (
	// Catalog read-through cache: catalog:product:{product_id} -> product JSON
	KeyCatalogProduct = "catalog:product:%s"

	// Purchase list cache: purchases:{user_id}:{version} -> []Purchase JSON
	KeyPurchases = "purchases:%s:%d"

	// Purchase list version, bumped on every new purchase: purchases:ver:{user_id}
	KeyPurchasesVersion = "purchases:ver:%s"

	// Checkout idempotency: idem:checkout:{user_id}:{key} -> purchase_id
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Bestseller projection: zset member=product_id score=units sold
	KeyBestsellers = "sales:bestsellers"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour

	TTLPurchasesVersion = 7 * 24 * time.Hour
)
