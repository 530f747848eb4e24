package xendit

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("xendit config invalid")
	ErrRequestFailed   = errors.New("xendit request failed")
	ErrResponseInvalid = errors.New("xendit response invalid")
)

// 网关侧打款状态常量
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusAccepted   = "ACCEPTED"
	StatusLocked     = "LOCKED"
	StatusCompleted  = "COMPLETED"
	StatusSucceeded  = "SUCCEEDED"
	StatusFailed     = "FAILED"
	StatusCancelled  = "CANCELLED"
)

// Config Xendit 打款网关配置
type Config struct {
	BaseURL       string `json:"base_url"`       // 网关地址，默认 https://api.xendit.co
	APIKey        string `json:"api_key"`        // API 密钥（Basic Auth 用户名）
	CallbackToken string `json:"callback_token"` // 回调校验 Token
	TimeoutMS     int    `json:"timeout_ms"`     // 请求超时（毫秒）
}

// CreateInput 创建打款输入
type CreateInput struct {
	ExternalID        string
	Amount            float64
	BankCode          string
	AccountHolderName string
	AccountNumber     string
	Description       string
	Metadata          map[string]interface{}
}

// CreateResult 创建打款结果
type CreateResult struct {
	DisbursementID string                 // 网关侧单号
	ExternalID     string                 // 商户侧单号
	Status         string                 // 网关状态
	Amount         float64                // 打款金额
	Raw            map[string]interface{} // 原始响应
}

// ParseConfig 解析配置
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.Normalize()
	return &cfg, nil
}

// ValidateConfig 校验配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	return nil
}

// Normalize 归一化配置并填充默认值
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.CallbackToken = strings.TrimSpace(c.CallbackToken)
	if c.BaseURL == "" {
		c.BaseURL = "https://api.xendit.co"
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 10000
	}
}

// CreateDisbursement 创建打款单
func CreateDisbursement(ctx context.Context, cfg *Config, input CreateInput) (*CreateResult, error) {
	if cfg == nil {
		return nil, ErrConfigInvalid
	}
	if strings.TrimSpace(input.ExternalID) == "" || input.Amount <= 0 {
		return nil, fmt.Errorf("%w: external_id and amount are required", ErrConfigInvalid)
	}
	if strings.TrimSpace(input.AccountNumber) == "" {
		return nil, fmt.Errorf("%w: account_number is required", ErrConfigInvalid)
	}

	params := map[string]interface{}{
		"external_id":         input.ExternalID,
		"amount":              input.Amount,
		"bank_code":           input.BankCode,
		"account_holder_name": input.AccountHolderName,
		"account_number":      input.AccountNumber,
	}
	if input.Description != "" {
		params["description"] = input.Description
	}
	if len(input.Metadata) > 0 {
		params["metadata"] = input.Metadata
	}

	respBytes, err := doJSON(ctx, cfg, http.MethodPost, "/disbursements", params)
	if err != nil {
		return nil, err
	}
	return parseDisbursement(respBytes)
}

// GetDisbursement 查询打款单
func GetDisbursement(ctx context.Context, cfg *Config, disbursementID string) (*CreateResult, error) {
	if cfg == nil {
		return nil, ErrConfigInvalid
	}
	id := strings.TrimSpace(disbursementID)
	if id == "" {
		return nil, fmt.Errorf("%w: disbursement id is required", ErrConfigInvalid)
	}

	respBytes, err := doJSON(ctx, cfg, http.MethodGet, "/disbursements/"+id, nil)
	if err != nil {
		return nil, err
	}
	return parseDisbursement(respBytes)
}

func parseDisbursement(respBytes []byte) (*CreateResult, error) {
	var resp struct {
		ID         string  `json:"id"`
		ExternalID string  `json:"external_id"`
		Status     string  `json:"status"`
		Amount     float64 `json:"amount"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: missing disbursement id", ErrResponseInvalid)
	}

	var raw map[string]interface{}
	_ = json.Unmarshal(respBytes, &raw)

	return &CreateResult{
		DisbursementID: resp.ID,
		ExternalID:     resp.ExternalID,
		Status:         resp.Status,
		Amount:         resp.Amount,
		Raw:            raw,
	}, nil
}

// VerifyCallbackToken 校验回调 Token（精确匹配）
func VerifyCallbackToken(cfg *Config, token string) bool {
	if cfg == nil || cfg.CallbackToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cfg.CallbackToken), []byte(strings.TrimSpace(token))) == 1
}

// ResolveChannelCode 根据打款方式解析网关渠道代码
// 银行转账使用推广账户配置的银行代码，电子钱包使用固定渠道
func ResolveChannelCode(method, bankCode string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "ewallet_ovo":
		return "ID_OVO"
	case "ewallet_dana":
		return "ID_DANA"
	case "ewallet_gopay":
		return "ID_GOPAY"
	default:
		return strings.ToUpper(strings.TrimSpace(bankCode))
	}
}

// ToPayoutStatus 将网关状态转换为打款单状态
// 未知状态返回空字符串，由调用方决定是否忽略
func ToPayoutStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusPending, StatusProcessing, StatusAccepted, StatusLocked:
		return "processing"
	case StatusCompleted, StatusSucceeded:
		return "sent"
	case StatusFailed, StatusCancelled:
		return "failed"
	default:
		return ""
	}
}

func doJSON(ctx context.Context, cfg *Config, method, path string, params map[string]interface{}) ([]byte, error) {
	var reader io.Reader
	if params != nil {
		body, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		reader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(cfg.APIKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		}
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.ErrorCode != "" {
			return nil, fmt.Errorf("%w: %s (%s)", ErrRequestFailed, apiErr.Message, apiErr.ErrorCode)
		}
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	return respBytes, nil
}
