package handler

import (
	"context"
	"strconv"

	"dispatch-core/internal/backend"
	"dispatch-core/internal/handler/request"
	"dispatch-core/internal/handler/response"
	"dispatch-core/internal/model"
	"dispatch-core/internal/service"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/wallet/types"

	"github.com/gin-gonic/gin"
)

// DispatchAPI handler 依赖的服务方法
type DispatchAPI interface {
	Dispatch(ctx context.Context, kind types.Kind, req *backend.PaymentInfoRequest, account string) (*model.DispatchRecord, error)
	Capabilities(ctx context.Context, account string) types.WalletCapabilities
	Latest(ctx context.Context, kind types.Kind, id int64) (*model.DispatchRecord, error)
}

var _ DispatchAPI = (*service.DispatchService)(nil)

type DispatchHandler struct {
	svc DispatchAPI
}

func NewDispatchHandler(svc DispatchAPI) *DispatchHandler {
	return &DispatchHandler{svc: svc}
}

// Dispatch POST /api/v1/dispatch
// 派发会等待钱包签名和链上确认, 请求可能持续数十秒
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var req request.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(err.Error()))
		return
	}
	kind, err := types.ParseKind(req.Kind)
	if err != nil {
		response.Error(c, errno.ErrBind.WithMessage(err.Error()))
		return
	}

	rec, err := h.svc.Dispatch(c.Request.Context(), kind, &backend.PaymentInfoRequest{
		Asset:         req.Asset,
		Blockchain:    req.Blockchain,
		Amount:        req.Amount,
		TargetAsset:   req.TargetAsset,
		WalletAddress: req.Account,
	}, req.Account)
	if err != nil {
		response.ErrorWithData(c, err, rec)
		return
	}
	response.Success(c, rec)
}

// Capabilities GET /api/v1/capabilities/:account
func (h *DispatchHandler) Capabilities(c *gin.Context) {
	caps := h.svc.Capabilities(c.Request.Context(), c.Param("account"))
	response.Success(c, caps)
}

// GetDispatch GET /api/v1/dispatches/:kind/:id
func (h *DispatchHandler) GetDispatch(c *gin.Context) {
	kind, err := types.ParseKind(c.Param("kind"))
	if err != nil {
		response.Error(c, errno.ErrBind.WithMessage(err.Error()))
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, errno.ErrBind.WithMessage("invalid id "+c.Param("id")))
		return
	}

	rec, err := h.svc.Latest(c.Request.Context(), kind, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rec)
}
