package cmd

import (
	"dispatch-core/internal/dispatch"

	"github.com/spf13/cobra"
)

var probeAccount string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "查询钱包能力 (wallet_getCapabilities)",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := openWallet(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()

		account, err := accountOr(probeAccount, h)
		if err != nil {
			return err
		}
		caps := dispatch.NewCapabilityProbe(h.Port).Probe(cmd.Context(), account)
		return printJSON(cmd, caps)
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeAccount, "account", "", "查询的账户地址")
	rootCmd.AddCommand(probeCmd)
}
