package handler

import (
	"context"
	"strconv"
	"time"

	"custody-core/internal/handler/request"
	"custody-core/internal/handler/response"
	"custody-core/internal/service"
	"custody-core/pkg/errno"

	"github.com/gin-gonic/gin"
)

// requestTimeout 单次签名广播的请求级超时
const requestTimeout = 10 * time.Second

type TransactionHandler struct {
	signing  *service.SigningService
	recorder *service.RecorderService
}

func NewTransactionHandler(signing *service.SigningService, recorder *service.RecorderService) *TransactionHandler {
	return &TransactionHandler{signing: signing, recorder: recorder}
}

// Send 签名并广播一笔转账
// @Summary 签名并广播交易
// @Description 登记待签交易后立即走 PIN 验证、设备签名、广播三段流水线，三者任一失败交易按终态清除
// @Tags Transaction
// @Accept json
// @Produce json
// @Param request body request.SendRequest true "Send Request"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/send [post]
func (h *TransactionHandler) Send(c *gin.Context) {
	var req request.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	tx := service.PendingTransaction{
		ToAddress: req.ToAddress,
		Amount:    req.Amount,
		ChainID:   req.ChainID,
	}
	if err := h.signing.SetPending(&tx); err != nil {
		// PIN 错误后待签交易被保留，同一笔交易重试直接放行
		if pending, ok := h.signing.Pending(); !ok || pending != tx {
			response.Error(c, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.signing.SignAndSend(ctx, req.Pin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Cancel 取消待签交易
// @Summary 取消当前待签交易
// @Description 签名进行中不可取消，此时返回的仍是成功但交易保持在途
// @Tags Transaction
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/pending [delete]
func (h *TransactionHandler) Cancel(c *gin.Context) {
	h.signing.ClearPending()
	response.Success(c, nil)
}

// Pending 查询待签交易
// @Summary 查询当前待签交易
// @Tags Transaction
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/transactions/pending [get]
func (h *TransactionHandler) Pending(c *gin.Context) {
	pending, exists := h.signing.Pending()
	if !exists {
		response.Success(c, gin.H{"exists": false})
		return
	}
	response.Success(c, gin.H{"exists": true, "transaction": pending})
}

// List 查询交易历史
// @Summary 查询交易历史
// @Description 按创建时间倒序返回已记录的交易，limit 默认 50、上限 200
// @Tags Transaction
// @Produce json
// @Param limit query int false "记录条数"
// @Success 200 {object} response.Response
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	txs, err := h.recorder.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, txs)
}
