package cmd

import (
	"errors"

	"dispatch-core/internal/dispatch"
	"dispatch-core/pkg/errno"

	"github.com/spf13/cobra"
)

var statusOnce bool

var statusCmd = &cobra.Command{
	Use:   "status <bundle-id>",
	Short: "查询批量交易状态 (wallet_getCallsStatus)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openWallet(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		if statusOnce {
			st, err := h.Port.GetCallsStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		}

		poller := dispatch.NewStatusPoller(h.Port, cfg.Dispatch.PollMaxAttempts, cfg.Dispatch.PollInterval, nil)
		res, err := poller.Poll(cmd.Context(), args[0])
		if err != nil && !errors.Is(err, errno.ErrTransactionTimeout) {
			return err
		}
		if perr := printJSON(cmd, res); perr != nil {
			return perr
		}
		return err
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusOnce, "once", false, "只查询一次, 不轮询")
	rootCmd.AddCommand(statusCmd)
}
