package apperror

// messages maps error codes to human-readable messages.
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",
	CodeMathOverflow:       "Arithmetic overflow",
	CodeStoreError:         "Persistent store operation failed",

	CodePoolNotFound:          "Pool not found for token pair",
	CodePoolExists:            "Pool already exists for token pair",
	CodePoolInactive:          "Pool is inactive",
	CodeDeadlineExpired:       "Deadline expired before execution",
	CodeSlippageExceeded:      "Output below caller-supplied minimum",
	CodeInsufficientLiquidity: "Insufficient liquidity for quote",
	CodeInsufficientShares:    "Liquidity exceeds caller's share balance",

	CodeInsufficientBalance:   "Insufficient token balance",
	CodeInsufficientAllowance: "Insufficient token allowance",

	CodeOpportunityNotFound: "Arbitrage opportunity not found",
	CodeOpportunityStale:    "Opportunity no longer profitable at current reserves",
	CodeLeg1Failed:          "First arbitrage leg failed, nothing committed",
	CodeLeg2Stranded:        "Second arbitrage leg failed, intermediate token held",
	CodeQuoteFailed:         "External venue quote failed",
}
