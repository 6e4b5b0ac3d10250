package model

// AssetType selects which market-data backend serves an asset.
type AssetType string

const (
	AssetCrypto AssetType = "crypto"
	AssetStock  AssetType = "stock"
)

// Asset describes one configured quiz asset.
// Symbol is the short name used in routes and artifact paths ("btc"),
// ID is the backend identifier ("bitcoin" for CoinGecko, "AAPL" for
// the equities providers).
type Asset struct {
	Symbol string    `yaml:"symbol"`
	ID     string    `yaml:"id"`
	Type   AssetType `yaml:"type"`
}
