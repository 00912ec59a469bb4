package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestConstructors() {
	cause := errors.New("connection reset")

	tests := []struct {
		name    string
		err     *Error
		code    ErrorCode
		message string
		cause   error
	}{
		{"New", New(ErrCodeDataNotFound, "no bars"), ErrCodeDataNotFound, "no bars", nil},
		{"Newf", Newf(ErrCodeUnknownSource, "unknown source %q", "foo"), ErrCodeUnknownSource, `unknown source "foo"`, nil},
		{"Wrap", Wrap(ErrCodeNetworkError, "request failed", cause), ErrCodeNetworkError, "request failed", cause},
		{"Wrapf", Wrapf(ErrCodeNetworkError, cause, "request for %s failed", "AAPL"), ErrCodeNetworkError, "request for AAPL failed", cause},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.code, tc.err.Code)
			suite.Equal(tc.message, tc.err.Message)
			suite.Equal(tc.cause, tc.err.Cause)
		})
	}
}

func (suite *ErrorTestSuite) TestErrorString() {
	suite.Equal("[200] no bars", New(ErrCodeDataNotFound, "no bars").Error())

	err := Wrap(ErrCodeRateLimited, "too many requests", errors.New("status 429"))
	suite.Equal("[705] too many requests: status 429", err.Error())
	suite.Equal("status 429", err.Unwrap().Error())
}

func (suite *ErrorTestSuite) TestGetCodeThroughWrapping() {
	inner := New(ErrCodeRateLimited, "slow down")
	wrapped := fmt.Errorf("fetch AAPL: %w", inner)

	suite.Equal(ErrCodeRateLimited, GetCode(wrapped))
	suite.True(HasCode(wrapped, ErrCodeRateLimited))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))

	var typed *Error
	suite.True(errors.As(wrapped, &typed))
	suite.Equal("slow down", typed.Message)
	suite.True(errors.Is(wrapped, inner))
}

func (suite *ErrorTestSuite) TestIsRetryable() {
	suite.True(IsRetryable(New(ErrCodeRateLimited, "slow down")))
	suite.True(IsRetryable(fmt.Errorf("wrapped: %w", New(ErrCodeRateLimited, "slow down"))))
	suite.False(IsRetryable(New(ErrCodeDataNotFound, "empty")))
	suite.False(IsRetryable(New(ErrCodeNetworkError, "dial tcp")))
	suite.False(IsRetryable(errors.New("plain")))
	suite.False(IsRetryable(nil))
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataErrorf(20, 5, "AAPL", "insufficient data for %s: required %d, got %d", "SMA", 20, 5)
	suite.Equal(20, err.Required)
	suite.Equal(5, err.Actual)
	suite.Equal("AAPL", err.Symbol)
	suite.Equal("insufficient data for SMA: required 20, got 5", err.Error())

	suite.True(IsInsufficientDataError(fmt.Errorf("decide: %w", err)))
	suite.False(IsInsufficientDataError(New(ErrCodeInvalidParameter, "bad")))
	suite.False(IsInsufficientDataError(nil))
}
