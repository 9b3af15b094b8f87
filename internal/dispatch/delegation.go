package dispatch

import (
	"context"
	"fmt"

	"dispatch-core/internal/wallet"
	"dispatch-core/pkg/logger"
	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"go.uber.org/zap"
)

// setCodeMagic 授权摘要前缀
const setCodeMagic = 0x05

// DelegationAuthorizer 构造并签名账户委托授权
type DelegationAuthorizer struct {
	port wallet.Port
}

func NewDelegationAuthorizer(port wallet.Port) *DelegationAuthorizer {
	return &DelegationAuthorizer{port: port}
}

// Digest keccak256(0x05 || rlp([chainId, address, nonce]))
func Digest(spec *types.DelegationAuthorizationSpec) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes([]interface{}{spec.ChainID, spec.ContractAddress, spec.Nonce})
	if err != nil {
		return common.Hash{}, fmt.Errorf("rlp encode authorization: %w", err)
	}
	return crypto.Keccak256Hash([]byte{setCodeMagic}, enc), nil
}

// Authorize 钱包签名摘要, 钱包错误原样返回 (例如用户拒绝 4001)
func (a *DelegationAuthorizer) Authorize(ctx context.Context, spec *types.DelegationAuthorizationSpec, account string) (*types.SignedAuthorization, error) {
	digest, err := Digest(spec)
	if err != nil {
		return nil, err
	}

	sig, err := a.port.SignDigest(ctx, account, digest)
	if err != nil {
		return nil, err
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("unexpected signature length %d", len(sig))
	}

	auth := &types.SignedAuthorization{
		ChainID: spec.ChainID,
		Address: spec.ContractAddress,
		Nonce:   spec.Nonce,
		R:       common.BytesToHash(sig[:32]),
		S:       common.BytesToHash(sig[32:64]),
		YParity: YParity(uint64(sig[64])),
	}

	if signer, err := recoverSigner(digest, auth); err != nil || (common.IsHexAddress(account) && signer != common.HexToAddress(account)) {
		logger.Warn("授权签名恢复出的地址与账户不一致",
			zap.String("account", account),
			zap.String("recovered", signer.Hex()),
			zap.Error(err))
	}
	return auth, nil
}

// YParity 钱包返回的 v 可能是 0/1, 27/28 或 EIP-155 形式
func YParity(v uint64) uint8 {
	switch {
	case v >= 35:
		return uint8((v - 35) % 2)
	case v >= 27:
		return uint8(v - 27)
	default:
		return uint8(v % 2)
	}
}

func recoverSigner(digest common.Hash, auth *types.SignedAuthorization) (common.Address, error) {
	sig := make([]byte, crypto.SignatureLength)
	copy(sig[:32], auth.R[:])
	copy(sig[32:64], auth.S[:])
	sig[64] = auth.YParity
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
