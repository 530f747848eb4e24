package constants

// 转化状态常量
const (
	ConversionStatusPending = "pending"
	ConversionStatusCleared = "cleared"
	ConversionStatusFlagged = "flagged"
	ConversionStatusPaid    = "paid"
)

// 结算动作常量
const (
	ClearingActionCleared = "cleared"
	ClearingActionFlagged = "flagged"
)

// 打款单状态常量
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusSent       = "sent"
	PayoutStatusFailed     = "failed"
)

// 打款方式常量
const (
	PayoutMethodBankTransfer = "bank_transfer"
	PayoutMethodEwalletOvo   = "ewallet_ovo"
	PayoutMethodEwalletDana  = "ewallet_dana"
	PayoutMethodEwalletGopay = "ewallet_gopay"
)

// 推广等级常量
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// 推广账户状态常量
const (
	AffiliateStatusActive    = "active"
	AffiliateStatusSuspended = "suspended"
)

// 系统配置键常量
const (
	SettingKeyClearing = "clearing"
	SettingKeyPayout   = "payout"
)

// 异步任务类型常量
const (
	TaskTypeClearingRun        = "clearing:run"
	TaskTypePayoutNotification = "payout:notification"
)

// 异步队列名称常量
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// 打款通知事件常量
const (
	PayoutEventSent   = "payout_sent"
	PayoutEventFailed = "payout_failed"
)
