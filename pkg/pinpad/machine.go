package pinpad

import (
	"custody-core/pkg/errno"
)

// State 表示 PIN 输入状态机的当前状态。
type State int

const (
	StateIdle State = iota
	StateEntering
	StateConfirming // 仅设置 PIN 流程使用
	StateSubmitting
	StateSuccess
	StateFailed // 可重试：再次输入数字即回到 StateEntering
)

const (
	// MinPinLength 提交校验下限，不足时直接拒绝，绝不触碰设备
	MinPinLength = 4
	// MaxPinLength 可配置上限
	MaxPinLength = 6
)

// SubmitFunc 是提交回调，由调用方接入设备解锁或签名动作。
// 返回非 nil 表示本次提交失败 (例如 PIN 不正确)。
type SubmitFunc func(pin string) error

// Machine 是 PIN 输入的有限状态机。
// 到达配置长度时自动触发提交，这是一条显式的转移守卫而不是副作用。
// 单一操作者模型，调用方不做并发访问。
type Machine struct {
	state     State
	pinLength int
	confirm   bool // 设置流程：需要二次确认
	buffer    []rune
	first     string // 设置流程捕获的第一次输入
	errMsg    string
	submit    SubmitFunc
}

// New 创建解锁/签名流程的状态机 (无确认步骤)。
// pinLength 必须是 4、5 或 6。
func New(pinLength int, submit SubmitFunc) (*Machine, error) {
	if pinLength < MinPinLength || pinLength > MaxPinLength {
		return nil, errno.ErrPinTooShort
	}
	return &Machine{
		state:     StateIdle,
		pinLength: pinLength,
		submit:    submit,
	}, nil
}

// NewSetFlow 创建设置 PIN 流程的状态机，第一次输入完成后进入 Confirming，
// 两次输入一致才触发提交。
func NewSetFlow(pinLength int, submit SubmitFunc) (*Machine, error) {
	m, err := New(pinLength, submit)
	if err != nil {
		return nil, err
	}
	m.confirm = true
	return m, nil
}

func (m *Machine) State() State { return m.state }

// Entered 返回当前已输入的位数 (UI 画掩码点用)。
func (m *Machine) Entered() int { return len(m.buffer) }

// Error 返回当前展示的错误信息，空串表示没有错误。
func (m *Machine) Error() string { return m.errMsg }

// SetPinLength 在输入前或输入中切换 PIN 位数。
// 切换会丢弃当前缓冲并清除错误；提交中不允许切换。
func (m *Machine) SetPinLength(n int) error {
	if n < MinPinLength || n > MaxPinLength {
		return errno.ErrPinTooShort
	}
	if m.state == StateSubmitting {
		return errno.ErrTxInFlight
	}
	m.pinLength = n
	m.buffer = nil
	m.first = ""
	m.errMsg = ""
	if m.state != StateIdle {
		m.state = StateEntering
	}
	return nil
}

// AppendDigit 追加一位数字。
// 仅接受 '0'-'9'；缓冲到达 pinLength 时由转移守卫自动触发提交。
// 提交中与已成功的机器拒绝输入。
func (m *Machine) AppendDigit(d rune) error {
	if d < '0' || d > '9' {
		return errno.ErrBind
	}
	switch m.state {
	case StateSubmitting, StateSuccess:
		return errno.ErrTxInFlight
	case StateIdle, StateFailed:
		m.state = StateEntering
	}

	// 任何输入都清除上一次的错误展示
	m.errMsg = ""

	if len(m.buffer) >= m.pinLength {
		// 守卫：缓冲永远不会超过 pinLength
		return nil
	}
	m.buffer = append(m.buffer, d)

	if len(m.buffer) == m.pinLength {
		return m.onBufferFull()
	}
	return nil
}

// DeleteLast 删除最后一位，总是合法，并清除错误。
func (m *Machine) DeleteLast() {
	if m.state == StateSubmitting {
		return
	}
	m.errMsg = ""
	if n := len(m.buffer); n > 0 {
		m.buffer = m.buffer[:n-1]
	}
}

// Clear 清空缓冲，总是合法，并清除错误。
func (m *Machine) Clear() {
	if m.state == StateSubmitting {
		return
	}
	m.errMsg = ""
	m.buffer = nil
}

// Submit 显式提交 (CLI 回车等场景)。
// 不足 4 位快速失败，不触碰设备。
func (m *Machine) Submit() error {
	if m.state == StateSubmitting || m.state == StateSuccess {
		return errno.ErrTxInFlight
	}
	if len(m.buffer) < MinPinLength {
		m.errMsg = errno.ErrPinTooShort.Message
		return errno.ErrPinTooShort
	}
	return m.doSubmit()
}

// Reset 回到初始状态，复用同一台机器开始下一次输入。
func (m *Machine) Reset() {
	m.state = StateIdle
	m.buffer = nil
	m.first = ""
	m.errMsg = ""
}

// onBufferFull 是到达 pinLength 的转移守卫。
func (m *Machine) onBufferFull() error {
	if m.confirm {
		if m.state != StateConfirming && m.first == "" {
			// 第一次输入完成，进入确认
			m.first = string(m.buffer)
			m.buffer = nil
			m.state = StateConfirming
			return nil
		}
		if string(m.buffer) != m.first {
			m.buffer = nil
			m.first = ""
			m.errMsg = "PIN confirmation does not match"
			m.state = StateFailed
			return errno.ErrPinIncorrect
		}
	}
	return m.doSubmit()
}

func (m *Machine) doSubmit() error {
	m.state = StateSubmitting
	pin := string(m.buffer)
	// 无论成败缓冲都被清空
	m.buffer = nil
	m.first = ""

	if err := m.submit(pin); err != nil {
		m.errMsg = err.Error()
		m.state = StateFailed
		return err
	}

	m.state = StateSuccess
	return nil
}
