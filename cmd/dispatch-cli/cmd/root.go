package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"dispatch-core/internal/wallet"
	"dispatch-core/pkg/config"
	"dispatch-core/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dispatch-cli",
	Short: "免 Gas 交易派发命令行工具",
	Long: `连接钱包, 查询能力, 计算授权摘要, 并按 批量交易 > 账户授权 > 普通交易 的顺序派发一笔交易。
配置读取 config.yaml, 也可以通过 --config 指定。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logger.Init("development")
		}
		c, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		cfg = c
		return nil
	},
}

// Execute 入口
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认 ./config.yaml 或 ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
}

func openWallet(ctx context.Context) (*wallet.Handle, error) {
	w := cfg.Wallet
	password := w.Password
	if password == "" {
		password = os.Getenv("WALLET_PASSWORD")
	}
	return wallet.Open(ctx, wallet.Options{
		Mode:           w.Mode,
		RpcURL:         w.RpcUrl,
		Account:        w.Account,
		KeystorePath:   w.KeystorePath,
		Password:       password,
		DerivationPath: w.DerivationPath,
		NodeRpcURL:     w.NodeRpcUrl,
	})
}

// accountOr 命令行 --account 优先
func accountOr(flag string, h *wallet.Handle) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if h.Account != "" {
		return h.Account, nil
	}
	return "", fmt.Errorf("未指定账户, 使用 --account 或配置 wallet.account")
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
