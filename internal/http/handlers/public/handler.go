package public

import "github.com/payout-next/internal/provider"

// Handler 公开接口处理器入口
// 说明：该处理器仅用于网关回调、健康检查等无需登录的 API。
type Handler struct {
	*provider.Container
}

// New 创建公开处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
