package request

// UnlockRequest PIN 解锁
type UnlockRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// SendRequest 发起一笔待签交易并用 PIN 授权
type SendRequest struct {
	ToAddress string `json:"to_address" binding:"required"`
	Amount    string `json:"amount" binding:"required"` // 十进制字符串
	ChainID   uint   `json:"chain_id"`
	Pin       string `json:"pin" binding:"required"`
}
