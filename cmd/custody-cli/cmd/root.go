package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverAddr string

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "custody-cli",
	Short: "硬件签名设备命令行工具",
	Long: `模拟硬件签名设备的配套命令行工具。
支持初始化设备 Keystore、通过 PIN 键盘解锁设备、签名并广播交易以及出厂重置。`,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8080", "custody-server 地址")
}
