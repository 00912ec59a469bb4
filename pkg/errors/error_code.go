package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown  ErrorCode = 1
	ErrCodeCanceled ErrorCode = 2

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeDuplicateTimestamp   ErrorCode = 120
	ErrCodeNegativeVolume       ErrorCode = 121

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound     ErrorCode = 200
	ErrCodeQueryFailed      ErrorCode = 202
	ErrCodeCacheReadFailed  ErrorCode = 210
	ErrCodeCacheWriteFailed ErrorCode = 211

	// Indicator errors (300-399)
	ErrCodeIndicatorCalculation ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError    ErrorCode = 401
	ErrCodeStrategyRuntimeError   ErrorCode = 402
	ErrCodeUnsupportedStrategy    ErrorCode = 403
	ErrCodeTriggerConditionFailed ErrorCode = 410
	ErrCodeTriggerActionFailed    ErrorCode = 411

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError  ErrorCode = 602
	ErrCodeBacktestNoStrategies ErrorCode = 604
	ErrCodeBacktestNoData       ErrorCode = 606
	ErrCodeTaskNotFound         ErrorCode = 610
	ErrCodeInvalidTask          ErrorCode = 611
	ErrCodeResultWriteFailed    ErrorCode = 612

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidInterval       ErrorCode = 703
	ErrCodeUnknownSource         ErrorCode = 704
	ErrCodeRateLimited           ErrorCode = 705
	ErrCodeNetworkError          ErrorCode = 706
	ErrCodeAdapterInternal       ErrorCode = 707

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
