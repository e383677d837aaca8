package config

// =============================================================================
// Ledger Rules (fixed, apply to every chain this software produces)
// Changing these makes previously written ledgers fail validation.
// =============================================================================

// Transaction and block limits.
const (
	MaxItemIDLen = 64   // Max bytes in an item identifier
	MaxBlockTxs  = 1000 // Max adjustments sealed into one block
)

// Proof-of-work limits. Difficulty is the number of leading '0' hex
// characters a block hash must carry.
const (
	MaxDifficulty     = 64 // A BLAKE3-256 hash has 64 hex characters
	DefaultDifficulty = 2
)
