package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查询交易历史",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		resp, err := getJSON(fmt.Sprintf("/api/v1/transactions?limit=%d", limit))
		if err != nil {
			fmt.Println("请求失败:", err)
			os.Exit(1)
		}
		if err := resp.apiError(); err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}

		var txs []struct {
			ID          string `json:"id"`
			Status      string `json:"status"`
			Amount      string `json:"amount"`
			TokenSymbol string `json:"token_symbol"`
			ToAddress   string `json:"to_address"`
			TxHash      string `json:"tx_hash"`
			Timestamp   string `json:"timestamp"`
		}
		if err := json.Unmarshal(resp.Data, &txs); err != nil {
			fmt.Println("解析响应失败:", err)
			os.Exit(1)
		}
		if len(txs) == 0 {
			fmt.Println("暂无交易记录。")
			return
		}

		for _, tx := range txs {
			fmt.Printf("%-28s %-10s %s %s → %s\n", tx.ID, tx.Status, tx.Amount, tx.TokenSymbol, tx.ToAddress)
			if tx.TxHash != "" {
				fmt.Printf("  %s  %s\n", tx.Timestamp, tx.TxHash)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 20, "返回条数")
}
