package store

import "log/slog"

const (
	// DefaultMaxTransactionItems is the classic TransactWriteItems item limit.
	DefaultMaxTransactionItems = 25

	// MaxTransactionItemsLimit is the hard protocol ceiling.
	MaxTransactionItemsLimit = 100

	// MaxIdempotencyTokenLength is the longest client request token accepted.
	MaxIdempotencyTokenLength = 36
)

// Config holds configuration for the Store and the transactions it creates.
type Config struct {
	// MaxTransactionItems caps the number of items in one transaction.
	// Default: 25
	// Max: 100
	MaxTransactionItems int

	// Logger receives dispatch logs. Default: slog.Default()
	Logger *slog.Logger

	// Endpoint overrides the DynamoDB endpoint used by NewFromConfig
	// (e.g., "http://localhost:8000" for DynamoDB Local).
	Endpoint string
}

// DefaultConfig returns the protocol defaults.
func DefaultConfig() Config {
	return Config{
		MaxTransactionItems: DefaultMaxTransactionItems,
	}
}

// validate clamps config values into acceptable bounds.
func (c *Config) validate() {
	if c.MaxTransactionItems < 1 {
		c.MaxTransactionItems = DefaultMaxTransactionItems
	}
	if c.MaxTransactionItems > MaxTransactionItemsLimit {
		c.MaxTransactionItems = MaxTransactionItemsLimit
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
