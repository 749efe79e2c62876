package handler

import (
	"custody-core/internal/handler/request"
	"custody-core/internal/handler/response"
	"custody-core/internal/service"
	"custody-core/pkg/errno"
	"custody-core/pkg/pinpad"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	session *service.SessionService
}

func NewDeviceHandler(session *service.SessionService) *DeviceHandler {
	return &DeviceHandler{session: session}
}

// Unlock 解锁设备
// @Summary 用 PIN 解锁签名设备
// @Description PIN 校验通过后开启带过期的解锁会话，并派生所有配置链上的钱包
// @Tags Device
// @Accept json
// @Produce json
// @Param request body request.UnlockRequest true "Unlock Request"
// @Success 200 {object} response.Response
// @Router /api/v1/device/unlock [post]
func (h *DeviceHandler) Unlock(c *gin.Context) {
	var req request.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	// 长度不足在触碰设备前拒绝
	if len(req.Pin) < pinpad.MinPinLength {
		response.Error(c, errno.ErrPinTooShort)
		return
	}

	if !h.session.Unlock(c.Request.Context(), req.Pin) {
		response.Error(c, errno.ErrPinIncorrect)
		return
	}

	session, _ := h.session.Current()
	response.Success(c, session)
}

// Session 查询会话状态
// @Summary 查询当前解锁会话
// @Tags Device
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/device/session [get]
func (h *DeviceHandler) Session(c *gin.Context) {
	session, exists := h.session.Current()
	response.Success(c, gin.H{
		"is_unlocked": exists && h.session.IsUnlocked(),
		"session":     session,
	})
}

// Lock 显式锁定
// @Summary 锁定设备并结束会话
// @Tags Device
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/device/lock [post]
func (h *DeviceHandler) Lock(c *gin.Context) {
	h.session.Lock(c.Request.Context())
	response.Success(c, nil)
}

// Reset 出厂重置
// @Summary 出厂重置设备
// @Description 擦除成功立即断开并清除会话；固件不支持或重置故障时引导用户走手工重置路径
// @Tags Device
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/device/reset [post]
func (h *DeviceHandler) Reset(c *gin.Context) {
	if !h.session.FactoryReset(c.Request.Context()) {
		response.Error(c, errno.ErrResetUnsupported)
		return
	}
	response.Success(c, gin.H{"wiped": true})
}
