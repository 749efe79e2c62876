package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"custody-core/pkg/pinpad"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "签名并广播一笔转账",
	Long: `登记一笔待签交易并输入 PIN 完成签名广播。
金额是十进制字符串 (如 "1.5")，会原样保留在交易记录里。`,
	Run: func(cmd *cobra.Command, args []string) {
		to, _ := cmd.Flags().GetString("to")
		amount, _ := cmd.Flags().GetString("amount")
		chainID, _ := cmd.Flags().GetUint("chain")
		pinLength, _ := cmd.Flags().GetInt("pin-length")

		if to == "" || amount == "" {
			fmt.Println("必须指定 --to 与 --amount。")
			os.Exit(1)
		}

		fmt.Printf("转账 %s → %s (chain %d)\n", amount, to, chainID)

		var result struct {
			TransactionID string `json:"transaction_id"`
			TxHash        string `json:"tx_hash"`
			GasDegraded   bool   `json:"gas_degraded"`
		}

		machine, err := pinpad.New(pinLength, func(pin string) error {
			resp, err := postJSON("/api/v1/transactions/send", map[string]interface{}{
				"to_address": to,
				"amount":     amount,
				"chain_id":   chainID,
				"pin":        pin,
			})
			if err != nil {
				return err
			}
			if err := resp.apiError(); err != nil {
				return err
			}
			return json.Unmarshal(resp.Data, &result)
		})
		if err != nil {
			fmt.Println("PIN 长度配置不合法:", err)
			os.Exit(1)
		}

		if !runPinEntry(machine, "设备 PIN") {
			os.Exit(1)
		}

		fmt.Println("✅ 交易已广播")
		fmt.Printf("记录 ID: %s\n", result.TransactionID)
		fmt.Printf("链上哈希: %s\n", result.TxHash)
		if result.GasDegraded {
			fmt.Println("⚠️  gas/nonce 估算失败，本次使用了默认参数。")
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("to", "", "收款地址")
	sendCmd.Flags().String("amount", "", "转账金额 (十进制字符串)")
	sendCmd.Flags().Uint("chain", 0, "内部链 ID (0=Ethereum)")
	sendCmd.Flags().Int("pin-length", 6, "设备 PIN 长度 (4-6)")
}
