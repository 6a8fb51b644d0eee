package handler

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"wallet-gas/internal/handler/request"
	"wallet-gas/internal/handler/response"
	"wallet-gas/internal/model"
	"wallet-gas/internal/service"
	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/units"
	"wallet-gas/pkg/validator"
)

// GasFeeHandler 草稿与费用编辑器的 HTTP 入口
type GasFeeHandler struct {
	drafts         *service.DraftService
	flow           *service.EditFlowService
	tiers          *service.TierService
	defaultNetwork string
}

func NewGasFeeHandler(drafts *service.DraftService, flow *service.EditFlowService, tiers *service.TierService, defaultNetwork string) *GasFeeHandler {
	return &GasFeeHandler{
		drafts:         drafts,
		flow:           flow,
		tiers:          tiers,
		defaultNetwork: defaultNetwork,
	}
}

// EditPreviewView 编辑器当前暂存状态
type EditPreviewView struct {
	RequestID     string                `json:"requestId"`
	State         service.EditState     `json:"state"`
	Selection     service.SelectionView `json:"selection"`
	Alert         *model.Alert          `json:"alert,omitempty"`
	SaveAsDefault bool                  `json:"saveAsDefault"`
}

// EditResultView 保存后的草稿与非阻塞提示
type EditResultView struct {
	Draft        service.DraftView `json:"draft"`
	DefaultSaved bool              `json:"defaultSaved"`
	Notice       string            `json:"notice,omitempty"`
}

// TierView 编辑器里的一个档位
type TierView struct {
	Tier                    model.FeeTier `json:"tier"`
	Label                   string        `json:"label"`
	Emoji                   string        `json:"emoji"`
	MaxFeePerGas            *hexutil.Big  `json:"maxFeePerGas"`
	MaxPriorityFeePerGas    *hexutil.Big  `json:"maxPriorityFeePerGas"`
	MaxFeePerGasGwei        string        `json:"maxFeePerGasGwei"`
	EstimatedConfirmSeconds int64         `json:"estimatedConfirmSeconds"`
}

func newPreviewView(p *service.EditPreview) EditPreviewView {
	amounts := p.Amounts
	return EditPreviewView{
		RequestID:     p.RequestID,
		State:         p.State,
		Selection:     service.NewSelectionView(p.Staged, &amounts),
		Alert:         p.Alert,
		SaveAsDefault: p.SaveAsDefault,
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return false
	}
	return true
}

// CreateDraft POST /api/v1/drafts
func (h *GasFeeHandler) CreateDraft(c *gin.Context) {
	var req request.CreateDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	dr := service.DraftRequest{
		RequestID:  req.RequestID,
		Origin:     model.Origin(req.Origin),
		DappOrigin: req.DappOrigin,
		Account:    common.HexToAddress(req.From),
		Network:    req.Network,
		To:         common.HexToAddress(req.To),
		Value:      (*big.Int)(req.Value),
	}
	if dr.Network == "" {
		dr.Network = h.defaultNetwork
	}
	if req.Gas != nil {
		dr.GasLimit = uint64(*req.Gas)
	}
	if req.SuggestedFee != nil {
		dr.SuggestedFee = &model.FeeEstimate{
			MaxFeePerGas:         (*big.Int)(req.SuggestedFee.MaxFeePerGas),
			MaxPriorityFeePerGas: (*big.Int)(req.SuggestedFee.MaxPriorityFeePerGas),
		}
	}

	draft, err := h.drafts.Create(c.Request.Context(), dr)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, service.NewDraftView(draft, nil))
}

// GetDraft GET /api/v1/drafts/:id
func (h *GasFeeHandler) GetDraft(c *gin.Context) {
	draft, err := h.drafts.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, service.NewDraftView(draft, nil))
}

// DiscardDraft DELETE /api/v1/drafts/:id
func (h *GasFeeHandler) DiscardDraft(c *gin.Context) {
	if err := h.flow.DiscardDraft(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// OpenEdit POST /api/v1/drafts/:id/edit
func (h *GasFeeHandler) OpenEdit(c *gin.Context) {
	p, err := h.flow.OpenEdit(c.Request.Context(), c.Param("id"))
	h.preview(c, p, err)
}

// GetEdit GET /api/v1/drafts/:id/edit
func (h *GasFeeHandler) GetEdit(c *gin.Context) {
	p, err := h.flow.Preview(c.Param("id"))
	h.preview(c, p, err)
}

// CancelEdit DELETE /api/v1/drafts/:id/edit
func (h *GasFeeHandler) CancelEdit(c *gin.Context) {
	if err := h.flow.CancelEdit(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"state": service.StateClosed})
}

// SelectTier PUT /api/v1/drafts/:id/edit/tier
func (h *GasFeeHandler) SelectTier(c *gin.Context) {
	var req request.SelectTierRequest
	if !bindJSON(c, &req) {
		return
	}
	tier, err := model.ParseFeeTier(req.Tier)
	if err != nil {
		response.Error(c, errno.ErrValidation.WithMessage(err.Error()))
		return
	}
	p, err := h.flow.SelectTier(c.Request.Context(), c.Param("id"), tier)
	h.preview(c, p, err)
}

// SetCustomFee PUT /api/v1/drafts/:id/edit/custom
func (h *GasFeeHandler) SetCustomFee(c *gin.Context) {
	var req request.CustomFeeRequest
	if !bindJSON(c, &req) {
		return
	}
	maxFee, err := units.ParseGwei(req.MaxFeePerGas)
	if err != nil {
		response.Error(c, errno.ErrValidation.WithMessage(err.Error()))
		return
	}
	priority, err := units.ParseGwei(req.MaxPriorityFeePerGas)
	if err != nil {
		response.Error(c, errno.ErrValidation.WithMessage(err.Error()))
		return
	}
	p, err := h.flow.SetCustomFee(c.Request.Context(), c.Param("id"), maxFee, priority)
	h.preview(c, p, err)
}

// SetGasLimit PUT /api/v1/drafts/:id/edit/gas-limit
func (h *GasFeeHandler) SetGasLimit(c *gin.Context) {
	var req request.GasLimitRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.flow.SetGasLimit(c.Request.Context(), c.Param("id"), req.GasLimit)
	h.preview(c, p, err)
}

// ToggleSaveAsDefault PUT /api/v1/drafts/:id/edit/save-default
func (h *GasFeeHandler) ToggleSaveAsDefault(c *gin.Context) {
	var req request.SaveAsDefaultRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.flow.ToggleSaveAsDefault(c.Param("id"), *req.Enabled)
	h.preview(c, p, err)
}

// ConfirmEdit POST /api/v1/drafts/:id/edit/confirm
func (h *GasFeeHandler) ConfirmEdit(c *gin.Context) {
	res, err := h.flow.ConfirmEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, EditResultView{
		Draft:        service.NewDraftView(res.Draft, res.Alert),
		DefaultSaved: res.DefaultSaved,
		Notice:       res.Notice,
	})
}

// ListTiers GET /api/v1/tiers?network=mainnet
func (h *GasFeeHandler) ListTiers(c *gin.Context) {
	network := c.DefaultQuery("network", h.defaultNetwork)
	est, err := h.tiers.Estimates(c.Request.Context(), network)
	if err != nil {
		response.Error(c, err)
		return
	}

	tiers := make([]TierView, 0, len(model.BaselineTiers))
	for _, tier := range model.BaselineTiers {
		e, _ := est.ForTier(tier)
		tiers = append(tiers, TierView{
			Tier:                    tier,
			Label:                   tier.Label(),
			Emoji:                   tier.Emoji(),
			MaxFeePerGas:            (*hexutil.Big)(e.MaxFeePerGas),
			MaxPriorityFeePerGas:    (*hexutil.Big)(e.MaxPriorityFeePerGas),
			MaxFeePerGasGwei:        units.FormatGwei(e.MaxFeePerGas),
			EstimatedConfirmSeconds: e.EstimatedConfirmSeconds,
		})
	}
	response.Success(c, gin.H{
		"network":    network,
		"congestion": est.Congestion,
		"tiers":      tiers,
	})
}

func (h *GasFeeHandler) preview(c *gin.Context, p *service.EditPreview, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, newPreviewView(p))
}
