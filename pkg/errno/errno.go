package errno

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage returns a copy of the Errno carrying a concrete message,
// e.g. the verbatim error string reported by an RPC gateway.
func (e Errno) WithMessage(msg string) Errno {
	e.Message = msg
	return e
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
)

// Business Errors (20000+)
var (
	// PIN / 会话
	ErrPinTooShort  = Errno{Code: 20301, Message: "PIN must be at least 4 digits"}
	ErrPinIncorrect = Errno{Code: 20302, Message: "Incorrect PIN"}
	ErrDeviceLocked = Errno{Code: 20303, Message: "Device session is locked or expired"}

	// 签名 / 广播
	ErrTxInFlight      = Errno{Code: 20311, Message: "Another transaction is already being signed"}
	ErrNoPendingTx     = Errno{Code: 20312, Message: "No pending transaction to sign"}
	ErrSigningFailed   = Errno{Code: 20313, Message: "Device produced no signature"}
	ErrBroadcastFailed = Errno{Code: 20314, Message: "Broadcast rejected by network"}
	ErrInvalidAmount   = Errno{Code: 20315, Message: "Invalid transaction amount"}
	ErrChainNotFound   = Errno{Code: 20316, Message: "Chain not configured"}

	// 设备重置
	ErrResetUnsupported = Errno{Code: 20321, Message: "Device firmware does not support factory reset, please follow the manual recovery procedure"}
)
