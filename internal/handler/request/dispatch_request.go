package request

import "github.com/shopspring/decimal"

// DispatchRequest POST /api/v1/dispatch
type DispatchRequest struct {
	Kind        string          `json:"kind" binding:"required"`
	Account     string          `json:"account" binding:"required"`
	Asset       string          `json:"asset" binding:"required"`
	Blockchain  string          `json:"blockchain" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	TargetAsset string          `json:"target_asset"`
}
