package config

// Solana network constants
const (
	SolanaMainnetRPC = "https://api.mainnet-beta.solana.com"
	SolanaDevnetRPC  = "https://api.devnet.solana.com"

	// WebSocket endpoints
	SolanaMainnetWS = "wss://api.mainnet-beta.solana.com"
	SolanaDevnetWS  = "wss://api.devnet.solana.com"

	// Jito transaction endpoints
	JitoMainnetRPC = "https://mainnet.block-engine.jito.wtf/api/v1/transactions"
	JitoDevnetRPC  = "https://devnet.block-engine.jito.wtf/api/v1/transactions"

	DefaultCommitment = "confirmed"

	LamportsPerSol = 1_000_000_000

	// Wrapped SOL mint, the quote side of every trade
	WSOLMint = "So11111111111111111111111111111111111111112"
)

// Program and service addresses
const (
	// Raydium liquidity pool v4
	RaydiumAMMProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

	JupiterQuoteURL      = "https://api.jup.ag/swap/v1/quote"
	JupiterSwapURL       = "https://api.jup.ag/swap/v1/swap"
	DexScreenerTokensURL = "https://api.dexscreener.com/latest/dex/tokens"
)

// Tracking constants
const (
	DefaultTransferThresholdSOL = 5.0
	DefaultActivityThresholdSOL = 1.0
	DefaultActivityLogGapSec    = 20
	DefaultPollIntervalMs       = 1000
	MinPollIntervalMs           = 100

	// Substring of the creation log emitted alongside initialize2
	DefaultPoolLogMarker = "Create"
)

// Trading constants
const (
	// Default slippage in basis points (1% = 100 bp)
	DefaultSlippageBP = 500 // 5%

	MinTradeAmountSOL   = 0.0001
	MaxTradeAmountSOL   = 10.0
	DefaultBuyAmountSOL = 0.01

	DefaultTakeProfit      = 2.0
	DefaultLossStop        = 0.5
	DefaultStoppingTimeSec = 600

	// Token balances at or below this many base units are not worth a sell
	DefaultMinSellUnits = 1000
)

// Execution constants
const (
	DefaultMaxAttempts       = 5
	DefaultInitialBackoffMs  = 500
	DefaultMaxBackoffMs      = 10_000
	DefaultConfirmTimeoutSec = 90
	DefaultConfirmPollMs     = 1000
)

// ConvertSOLToLamports converts SOL to lamports
func ConvertSOLToLamports(sol float64) uint64 {
	return uint64(sol * LamportsPerSol)
}

// ConvertLamportsToSOL converts lamports to SOL
func ConvertLamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSol
}

// GetRPCEndpoint returns RPC endpoint based on network
func GetRPCEndpoint(network string) string {
	switch network {
	case "devnet":
		return SolanaDevnetRPC
	default:
		return SolanaMainnetRPC
	}
}

// GetWSEndpoint returns WebSocket endpoint based on network
func GetWSEndpoint(network string) string {
	switch network {
	case "devnet":
		return SolanaDevnetWS
	default:
		return SolanaMainnetWS
	}
}

// GetJitoEndpoint returns the Jito transaction endpoint based on network
func GetJitoEndpoint(network string) string {
	switch network {
	case "devnet":
		return JitoDevnetRPC
	default:
		return JitoMainnetRPC
	}
}
