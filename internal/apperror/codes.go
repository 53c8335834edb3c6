package apperror

// Code represents a unique error code for the application.
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
	CodeMathOverflow       Code = "MATH_OVERFLOW"
	CodeStoreError         Code = "STORE_ERROR"
)

// Pool and liquidity error codes
const (
	CodePoolNotFound          Code = "POOL_NOT_FOUND"
	CodePoolExists            Code = "POOL_EXISTS"
	CodePoolInactive          Code = "POOL_INACTIVE"
	CodeDeadlineExpired       Code = "DEADLINE_EXPIRED"
	CodeSlippageExceeded      Code = "SLIPPAGE_EXCEEDED"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInsufficientShares    Code = "INSUFFICIENT_SHARES"
)

// Token ledger error codes, propagated verbatim from the token book.
const (
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientAllowance Code = "INSUFFICIENT_ALLOWANCE"
)

// Arbitrage error codes
const (
	CodeOpportunityNotFound Code = "OPPORTUNITY_NOT_FOUND"
	CodeOpportunityStale    Code = "OPPORTUNITY_STALE"
	CodeLeg1Failed          Code = "LEG1_FAILED"
	CodeLeg2Stranded        Code = "LEG2_STRANDED"
	CodeQuoteFailed         Code = "QUOTE_FAILED"
)
