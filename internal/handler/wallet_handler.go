package handler

import (
	"custody-core/internal/handler/response"
	"custody-core/internal/service"
	"custody-core/pkg/errno"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	wallets  *service.WalletService
	chains   *service.ChainService
	deviceID uint64
}

func NewWalletHandler(wallets *service.WalletService, chains *service.ChainService, deviceID uint64) *WalletHandler {
	return &WalletHandler{wallets: wallets, chains: chains, deviceID: deviceID}
}

// List 查询设备已派生的钱包
// @Summary 查询设备钱包列表
// @Description 解锁时按配置的链与种子分组派生，未解锁过的设备返回空列表
// @Tags Wallet
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/wallets [get]
func (h *WalletHandler) List(c *gin.Context) {
	wallets, err := h.wallets.List(c.Request.Context(), h.deviceID)
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, wallets)
}

// Chains 查询支持的链
// @Summary 查询支持的链
// @Tags Wallet
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/chains [get]
func (h *WalletHandler) Chains(c *gin.Context) {
	chains, err := h.chains.List(c.Request.Context())
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, chains)
}
