package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"custody-core/pkg/device"
	"custody-core/pkg/keystore"
	"custody-core/pkg/pinpad"

	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/term"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "初始化设备 (生成种子助记词并加密保存，设置 PIN)",
	Long: `生成新的 BIP-39 种子助记词，用密码加密保存为 Keystore 文件，
并引导设置设备 PIN。输出的 pin_hash 需填入服务端配置的 device 段。`,
	Run: func(cmd *cobra.Command, args []string) {
		outputFile, _ := cmd.Flags().GetString("output")
		pinLength, _ := cmd.Flags().GetInt("pin-length")
		if _, err := os.Stat(outputFile); err == nil {
			fmt.Printf("错误: 文件 %s 已存在。请先删除或指定其他文件名。\n", outputFile)
			os.Exit(1)
		}
		if pinLength < pinpad.MinPinLength || pinLength > pinpad.MaxPinLength {
			fmt.Printf("错误: PIN 长度必须在 %d 到 %d 之间。\n", pinpad.MinPinLength, pinpad.MaxPinLength)
			os.Exit(1)
		}

		fmt.Println("正在初始化设备...")
		fmt.Println("请设置一个强密码来保护设备种子。")

		// 1. 输入 Keystore 密码
		password := readPasswordTwice("密码")
		if len(password) < 6 {
			fmt.Println("密码长度至少需要 6 位。")
			os.Exit(1)
		}

		// 2. 设置 PIN
		pin := readPasswordTwice(fmt.Sprintf("%d 位 PIN", pinLength))
		if len(pin) != pinLength || strings.Trim(pin, "0123456789") != "" {
			fmt.Printf("PIN 必须是 %d 位数字。\n", pinLength)
			os.Exit(1)
		}

		// 3. 生成种子助记词
		fmt.Println("正在生成种子助记词...")
		entropy, err := bip39.NewEntropy(128)
		if err != nil {
			fmt.Printf("生成熵失败: %v\n", err)
			os.Exit(1)
		}
		mnemonic, err := bip39.NewMnemonic(entropy)
		if err != nil {
			fmt.Printf("生成助记词失败: %v\n", err)
			os.Exit(1)
		}

		// 4. 加密保存
		fmt.Println("正在加密保存...")
		encrypted, err := keystore.EncryptSeed(mnemonic, password)
		if err != nil {
			fmt.Printf("加密失败: %v\n", err)
			os.Exit(1)
		}
		if err := keystore.SaveToFile(encrypted, outputFile); err != nil {
			fmt.Printf("保存文件失败: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n✅ 设备已初始化！\n")
		fmt.Printf("Keystore 位置: %s\n", outputFile)
		fmt.Printf("Keystore ID: %s\n", encrypted.Id)
		fmt.Println("\n请将以下内容填入服务端配置:")
		fmt.Printf("device:\n")
		fmt.Printf("  pin_length: %d\n", pinLength)
		fmt.Printf("  pin_hash: %s\n", device.HashPIN(pin))
		fmt.Printf("  keystore_path: %s\n", outputFile)
		fmt.Println("\n⚠️  警告: 请务必记住您的密码！丢失密码将无法恢复设备种子。")

		// 询问是否显示助记词
		fmt.Print("\n是否需要现在显示助记词以便备份? (y/N): ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input == "y" || input == "yes" {
			fmt.Println("\n---------------------------------------------------")
			fmt.Println("助记词 (请抄写在纸上并安全保管):")
			fmt.Println(mnemonic)
			fmt.Println("---------------------------------------------------")
		}
	},
}

// readPasswordTwice 两次读取并核对口令，不一致直接退出
func readPasswordTwice(label string) string {
	fmt.Printf("输入%s: ", label)
	first, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\n读取失败:", err)
		os.Exit(1)
	}
	fmt.Println()

	fmt.Printf("确认%s: ", label)
	second, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\n读取失败:", err)
		os.Exit(1)
	}
	fmt.Println()

	if string(first) != string(second) {
		fmt.Println("两次输入不一致！")
		os.Exit(1)
	}
	return string(first)
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringP("output", "o", "device.json", "输出的 Keystore 文件名")
	initCmd.Flags().Int("pin-length", 6, "设备 PIN 长度 (4-6，出厂后不可变)")
}
