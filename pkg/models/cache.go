package models

// TierStats reports hit/miss counters for one cache tier.
type TierStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// CacheStats reports cache performance across both tiers.
type CacheStats struct {
	RemoteEnabled bool      `json:"remote_enabled"`
	Remote        TierStats `json:"remote"`
	Local         TierStats `json:"local"`
	LocalEntries  int       `json:"local_entries"`
	LocalStores   int       `json:"local_stores"`
	StoreErrors   int64     `json:"store_errors"`
}
