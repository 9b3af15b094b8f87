package cmd

import (
	"fmt"

	"dispatch-core/internal/backend"
	"dispatch-core/internal/dispatch"
	"dispatch-core/pkg/wallet/types"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	dispatchKind        string
	dispatchAccount     string
	dispatchAsset       string
	dispatchBlockchain  string
	dispatchAmount      string
	dispatchTargetAsset string
	dispatchPlanOnly    bool
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "获取付款信息并派发一笔交易",
	Long: `向后端请求付款信息, 选择提交路径, 请求钱包签名或提交, 然后把结果上报给对应的确认接口。
--plan 只选路径, 不会触发钱包弹窗。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseKind(dispatchKind)
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(dispatchAmount)
		if err != nil {
			return fmt.Errorf("无效的金额 %q: %w", dispatchAmount, err)
		}

		client, err := backend.NewClient(backend.Config{
			BaseURL: cfg.Backend.BaseURL,
			Token:   cfg.Backend.Token,
			Timeout: cfg.Backend.Timeout,
		})
		if err != nil {
			return err
		}

		h, err := openWallet(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()
		account, err := accountOr(dispatchAccount, h)
		if err != nil {
			return err
		}

		d, err := client.FetchPaymentInfo(cmd.Context(), kind, &backend.PaymentInfoRequest{
			Asset:         dispatchAsset,
			Blockchain:    dispatchBlockchain,
			Amount:        amount,
			TargetAsset:   dispatchTargetAsset,
			WalletAddress: account,
		})
		if err != nil {
			return err
		}

		opts := dispatch.Options{
			SendCallsVersion:   cfg.Dispatch.SendCallsVersion,
			PollMaxAttempts:    cfg.Dispatch.PollMaxAttempts,
			PollInterval:       cfg.Dispatch.PollInterval,
			RequireGaslessFlag: cfg.Dispatch.RequireGaslessFlag,
			OnTransition: func(from, to dispatch.State) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %s\n", from, to)
			},
		}

		if dispatchPlanOnly {
			probe := dispatch.NewCapabilityProbe(h.Port)
			selector := dispatch.NewSelector(
				dispatch.NewBatchCallSubmitter(h.Port, probe, opts.SendCallsVersion),
				dispatch.NewDelegationAuthorizer(h.Port),
				h.Sender,
				opts.RequireGaslessFlag,
			)
			plan, err := selector.Plan(cmd.Context(), d, account)
			if err != nil {
				return err
			}
			return printJSON(cmd, plan)
		}

		engine := dispatch.New(h.Port, h.Sender, client, opts)
		res, err := engine.Run(cmd.Context(), d, account)
		if res != nil {
			if perr := printJSON(cmd, res); perr != nil {
				return perr
			}
		}
		return err
	},
}

func init() {
	f := dispatchCmd.Flags()
	f.StringVar(&dispatchKind, "kind", "sell", "sell 或 swap")
	f.StringVar(&dispatchAccount, "account", "", "付款账户, 默认使用配置")
	f.StringVar(&dispatchAsset, "asset", "", "付款资产, 例如 USDC")
	f.StringVar(&dispatchBlockchain, "blockchain", "", "链名称, 例如 Base")
	f.StringVar(&dispatchAmount, "amount", "", "金额")
	f.StringVar(&dispatchTargetAsset, "target-asset", "", "swap 的目标资产")
	f.BoolVar(&dispatchPlanOnly, "plan", false, "只输出选定的路径")
	_ = dispatchCmd.MarkFlagRequired("asset")
	_ = dispatchCmd.MarkFlagRequired("blockchain")
	_ = dispatchCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(dispatchCmd)
}
