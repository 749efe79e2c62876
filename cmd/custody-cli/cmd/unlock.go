package cmd

import (
	"fmt"
	"os"
	"syscall"

	"custody-core/pkg/pinpad"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "用 PIN 解锁签名设备",
	Long:  `输入设备 PIN 解锁签名设备。到达配置位数时自动提交，PIN 错误可直接重试。`,
	Run: func(cmd *cobra.Command, args []string) {
		pinLength, _ := cmd.Flags().GetInt("pin-length")

		machine, err := pinpad.New(pinLength, func(pin string) error {
			resp, err := postJSON("/api/v1/device/unlock", map[string]string{"pin": pin})
			if err != nil {
				return err
			}
			return resp.apiError()
		})
		if err != nil {
			fmt.Println("PIN 长度配置不合法:", err)
			os.Exit(1)
		}

		if !runPinEntry(machine, "设备 PIN") {
			os.Exit(1)
		}
		fmt.Println("✅ 设备已解锁")
	},
}

// runPinEntry 把隐藏输入逐位送进状态机，最多允许 3 次重试。
// 到达配置位数时状态机自动提交，不足位数时由回车触发显式提交。
func runPinEntry(machine *pinpad.Machine, label string) bool {
	for attempt := 0; attempt < 3; attempt++ {
		fmt.Printf("输入%s: ", label)
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Println("读取输入失败:", err)
			return false
		}

		for _, d := range string(raw) {
			// 非数字在这里被拒绝；auto-submit 由状态机守卫触发
			_ = machine.AppendDigit(d)
			if machine.State() == pinpad.StateSuccess || machine.State() == pinpad.StateFailed {
				break
			}
		}
		if machine.State() != pinpad.StateSuccess && machine.State() != pinpad.StateFailed {
			_ = machine.Submit()
		}

		switch machine.State() {
		case pinpad.StateSuccess:
			return true
		case pinpad.StateConfirming:
			fmt.Println("请再次输入以确认。")
			attempt-- // 确认步骤不算一次失败
		default:
			fmt.Println("❌", machine.Error())
			machine.Clear()
		}
	}
	fmt.Println("连续失败次数过多，已放弃。")
	return false
}

func init() {
	rootCmd.AddCommand(unlockCmd)
	unlockCmd.Flags().Int("pin-length", 6, "设备 PIN 长度 (4-6)")
}
