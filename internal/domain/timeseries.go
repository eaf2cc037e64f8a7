package domain

// PricePoint represents one collected price sample for an asset.
// Corresponds to price_series table in ClickHouse.
type PricePoint struct {
	AssetID     string  // asset identifier (token mint / pair symbol)
	TimestampMs int64   // Unix timestamp in milliseconds
	Price       float64 // observed price
}
