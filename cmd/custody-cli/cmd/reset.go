package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "出厂重置设备",
	Long: `擦除设备上的种子材料并锁定。操作不可逆！
固件不支持重置时服务端会返回引导信息，请按提示走手工重置路径。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("⚠️  出厂重置会永久擦除设备种子，未备份的助记词将无法恢复。")
		fmt.Print("确认重置? 输入 yes 继续: ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		if strings.TrimSpace(strings.ToLower(input)) != "yes" {
			fmt.Println("已取消。")
			return
		}

		resp, err := postJSON("/api/v1/device/reset", nil)
		if err != nil {
			fmt.Println("请求失败:", err)
			os.Exit(1)
		}
		if err := resp.apiError(); err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}
		fmt.Println("✅ 设备已擦除并断开。")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
