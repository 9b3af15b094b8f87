package cmd

import (
	"fmt"

	"dispatch-core/internal/dispatch"
	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	digestContract string
	digestChainID  uint64
	digestNonce    uint64
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "离线计算账户授权签名摘要",
	Long:  `keccak256(0x05 || rlp([chainId, contractAddress, nonce])), 不需要连接钱包。`,
	// 纯离线计算, 不读配置
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(digestContract) {
			return fmt.Errorf("无效的合约地址: %q", digestContract)
		}
		spec := &types.DelegationAuthorizationSpec{
			ContractAddress: common.HexToAddress(digestContract),
			ChainID:         digestChainID,
			Nonce:           digestNonce,
		}
		digest, err := dispatch.Digest(spec)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), digest.Hex())
		return nil
	},
}

func init() {
	digestCmd.Flags().StringVar(&digestContract, "contract", "", "委托合约地址")
	digestCmd.Flags().Uint64Var(&digestChainID, "chain-id", 1, "链 ID, 0 表示任意链")
	digestCmd.Flags().Uint64Var(&digestNonce, "nonce", 0, "账户 nonce")
	_ = digestCmd.MarkFlagRequired("contract")
	rootCmd.AddCommand(digestCmd)
}
