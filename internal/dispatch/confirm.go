package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"dispatch-core/internal/backend"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/wallet/types"
)

// Confirmer 后端确认接口, *backend.Client 满足该接口
type Confirmer interface {
	ConfirmSell(ctx context.Context, id int64, req *backend.ConfirmRequest) (*backend.ConfirmResponse, error)
	ConfirmSwap(ctx context.Context, id int64, req *backend.ConfirmRequest) (*backend.ConfirmResponse, error)
}

var _ Confirmer = (*backend.Client)(nil)

// Reporter 按描述类型把结果上报到 sell 或 swap 确认接口, 只会调用其中一个
type Reporter struct {
	confirmer Confirmer
}

func NewReporter(confirmer Confirmer) *Reporter {
	return &Reporter{confirmer: confirmer}
}

// Confirm 返回后端确认后的 id
func (r *Reporter) Confirm(ctx context.Context, d *types.TransactionDescriptor, outcome *Outcome) (int64, error) {
	req, err := confirmRequest(outcome)
	if err != nil {
		return 0, err
	}

	var resp *backend.ConfirmResponse
	switch d.Kind {
	case types.KindSell:
		resp, err = r.confirmer.ConfirmSell(ctx, d.ID, req)
	case types.KindSwap:
		resp, err = r.confirmer.ConfirmSwap(ctx, d.ID, req)
	default:
		return 0, errno.ErrInvalidDescriptor.WithMessage(fmt.Sprintf("unknown transaction kind %q", d.Kind))
	}
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError {
			return 0, fmt.Errorf("%w: %w", errno.ErrConfirmationRejected, err)
		}
		return 0, err
	}
	if resp == nil || resp.ID == 0 {
		return 0, errno.ErrConfirmationRejected.WithMessage(fmt.Sprintf("confirmation of %s %d returned no id", d.Kind, d.ID))
	}
	return resp.ID, nil
}

func confirmRequest(outcome *Outcome) (*backend.ConfirmRequest, error) {
	if outcome == nil {
		return nil, errors.New("nothing to confirm")
	}
	if outcome.Authorization != nil {
		return &backend.ConfirmRequest{Authorization: outcome.Authorization}, nil
	}
	if outcome.TxHash == "" {
		return nil, fmt.Errorf("%s outcome has no transaction hash", outcome.Path)
	}
	return &backend.ConfirmRequest{TxHash: outcome.TxHash}, nil
}
