package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Argument errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeInvalidInterval      ErrorCode = 120
	ErrCodeInvalidDate          ErrorCode = 121
	ErrCodeInvalidProvider      ErrorCode = 122
	ErrCodeInvalidFormat        ErrorCode = 123
	ErrCodeInvalidMethod        ErrorCode = 124

	// Transport errors (200-299)
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeHistoricalDataFailed  ErrorCode = 203

	// Market data errors (700-799)
	ErrCodeMissingPriceField     ErrorCode = 700
	ErrCodeInsufficientData      ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeSingularCovariance    ErrorCode = 703
	ErrCodeNoFeasibleWeights     ErrorCode = 704

	// Output errors (900-999)
	ErrCodeWriteFailed ErrorCode = 900
	ErrCodeReadFailed  ErrorCode = 901
)

// Category groups error codes by the stage of the pipeline that raised them.
type Category string

const (
	CategoryUnknown   Category = "unknown"
	CategoryArgument  Category = "argument"
	CategoryTransport Category = "transport"
	CategoryDataShape Category = "data_shape"
	CategoryIO        Category = "io"
)

// Category returns the category the code belongs to.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryArgument
	case c >= 200 && c < 300:
		return CategoryTransport
	case c >= 700 && c < 800:
		return CategoryDataShape
	case c >= 900 && c < 1000:
		return CategoryIO
	default:
		return CategoryUnknown
	}
}
