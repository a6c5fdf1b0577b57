package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidHoldingDays   ErrorCode = 102
	ErrCodeInvalidTakeProfit    ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInvalidAllocation    ErrorCode = 105
	ErrCodeInvalidPriceLimit    ErrorCode = 106
	ErrCodeInvalidBoardLot      ErrorCode = 107
	ErrCodeInvalidRate          ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeInvalidTradeItem     ErrorCode = 111

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNonMonotonicSeries    ErrorCode = 203
	ErrCodeNoDataFound           ErrorCode = 204
	ErrCodeInvalidPrice          ErrorCode = 205

	// Ledger errors (500-599)
	ErrCodePositionNotFound   ErrorCode = 500
	ErrCodeLedgerDesync       ErrorCode = 501
	ErrCodeInvariantViolation ErrorCode = 502
	ErrCodeSnapshotMismatch   ErrorCode = 503

	// Simulation errors (600-699)
	ErrCodeNotInitialized ErrorCode = 600
	ErrCodeInitFailed     ErrorCode = 601
	ErrCodeConfigError    ErrorCode = 602
	ErrCodeNoSignals      ErrorCode = 603
	ErrCodeSinkFailed     ErrorCode = 604
	ErrCodeCallbackFailed ErrorCode = 605
)
