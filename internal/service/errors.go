package service

import "errors"

// 业务错误哨兵，供 handler 层做错误映射
var (
	ErrNotFound                  = errors.New("record not found")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrInvalidPassword           = errors.New("invalid password")
	ErrWeakPassword              = errors.New("weak password")
	ErrAffiliateSuspended        = errors.New("affiliate suspended")
	ErrInvalidAffiliateStatus    = errors.New("invalid affiliate status")
	ErrInvalidRatePercent        = errors.New("invalid commission rate percent")
	ErrInvalidEwalletType        = errors.New("invalid ewallet type")
	ErrClearingDisabled          = errors.New("clearing disabled")
	ErrClearingConfigInvalid     = errors.New("clearing config invalid")
	ErrPayoutConfigInvalid       = errors.New("payout config invalid")
	ErrPayoutNotRetryable        = errors.New("payout not retryable")
	ErrPayoutPeriodInvalid       = errors.New("payout period invalid")
	ErrGatewayNotConfigured      = errors.New("payout gateway not configured")
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)
