package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-gas/internal/handler"
	"wallet-gas/internal/model"
	"wallet-gas/internal/service"
	"wallet-gas/pkg/lock"
	"wallet-gas/pkg/storage"
	"wallet-gas/pkg/units"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := service.NewStaticEstimateProvider()
	require.NoError(t, provider.SetEstimates("mainnet", model.FeeEstimates{
		Low:    model.FeeEstimate{MaxFeePerGas: units.GweiToWei(50), MaxPriorityFeePerGas: units.GweiToWei(1), EstimatedConfirmSeconds: 60},
		Medium: model.FeeEstimate{MaxFeePerGas: units.GweiToWei(100), MaxPriorityFeePerGas: units.GweiToWei(2), EstimatedConfirmSeconds: 30},
		High:   model.FeeEstimate{MaxFeePerGas: units.GweiToWei(150), MaxPriorityFeePerGas: units.GweiToWei(3), EstimatedConfirmSeconds: 15},
	}))
	defaults := service.NewCustomDefaultService(storage.NewMemoryStore())
	tiers := service.NewTierService(provider, defaults)
	safety := service.NewSafetyService(provider)
	drafts := service.NewDraftService(tiers, 21000)
	flow := service.NewEditFlowService(drafts, tiers, safety, defaults, lock.NewLocalLock(), time.Minute)

	return NewHTTPRouter(handler.NewGasFeeHandler(drafts, flow, tiers, "mainnet"))
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

type selectionJSON struct {
	Tier         string `json:"tier"`
	TierLabel    string `json:"tierLabel"`
	MaxFeePerGas string `json:"maxFeePerGas"`
	GasLimit     string `json:"gasLimit"`
	EstimatedFee string `json:"estimatedFee"`
	TotalCost    string `json:"totalCost"`
}

type previewJSON struct {
	RequestID     string        `json:"requestId"`
	State         string        `json:"state"`
	Selection     selectionJSON `json:"selection"`
	Alert         *model.Alert  `json:"alert"`
	SaveAsDefault bool          `json:"saveAsDefault"`
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestHealthAndTiers(t *testing.T) {
	r := newTestRouter(t)

	status, env := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)

	status, env = do(t, r, http.MethodGet, "/api/v1/tiers", nil)
	require.Equal(t, http.StatusOK, status)
	var tiers struct {
		Network string `json:"network"`
		Tiers   []struct {
			Tier             string `json:"tier"`
			Label            string `json:"label"`
			MaxFeePerGasGwei string `json:"maxFeePerGasGwei"`
		} `json:"tiers"`
	}
	decode(t, env, &tiers)
	assert.Equal(t, "mainnet", tiers.Network)
	require.Len(t, tiers.Tiers, 3)
	assert.Equal(t, "low", tiers.Tiers[0].Tier)
	assert.Equal(t, "Market", tiers.Tiers[1].Label)
	assert.Equal(t, "150", tiers.Tiers[2].MaxFeePerGasGwei)

	status, env = do(t, r, http.MethodGet, "/api/v1/tiers?network=sepolia", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, 30302, env.Code)
}

func TestEditCustomFeeFlow(t *testing.T) {
	r := newTestRouter(t)

	status, env := do(t, r, http.MethodPost, "/api/v1/drafts", gin.H{
		"requestId": "r1",
		"origin":    "wallet",
		"from":      "0x5cfe73b6021e818b776b421b1c4db2474086a7e1",
		"to":        "0x2f318c334780961fb129d2a6c30d0763d9a5c970",
		"value":     "0x1e87f85809dc0000", // 2.2 ETH
	})
	require.Equal(t, http.StatusOK, status, env.Msg)
	var draft struct {
		RequestID string        `json:"requestId"`
		ValueEth  string        `json:"valueEth"`
		Selection selectionJSON `json:"selection"`
	}
	decode(t, env, &draft)
	assert.Equal(t, "2.2", draft.ValueEth)
	assert.Equal(t, "medium", draft.Selection.Tier)
	assert.Equal(t, "0x5208", draft.Selection.GasLimit)

	status, env = do(t, r, http.MethodPost, "/api/v1/drafts/r1/edit", nil)
	require.Equal(t, http.StatusOK, status, env.Msg)
	var p previewJSON
	decode(t, env, &p)
	assert.Equal(t, "open", p.State)

	// 同一请求不能重复打开
	status, env = do(t, r, http.MethodPost, "/api/v1/drafts/r1/edit", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 30201, env.Code)

	status, env = do(t, r, http.MethodPut, "/api/v1/drafts/r1/edit/custom", gin.H{"maxFeePerGas": "8", "maxPriorityFeePerGas": "8"})
	require.Equal(t, http.StatusOK, status, env.Msg)
	p = previewJSON{}
	decode(t, env, &p)
	assert.Equal(t, "customizing", p.State)
	require.NotNil(t, p.Alert)
	assert.Equal(t, model.AlertLowFee, p.Alert.Kind)

	status, env = do(t, r, http.MethodPut, "/api/v1/drafts/r1/edit/custom", gin.H{"maxFeePerGas": "1", "maxPriorityFeePerGas": "2"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 30001, env.Code)

	status, env = do(t, r, http.MethodPut, "/api/v1/drafts/r1/edit/gas-limit", gin.H{"gasLimit": 100000})
	require.Equal(t, http.StatusOK, status, env.Msg)
	p = previewJSON{}
	decode(t, env, &p)
	assert.Equal(t, "custom", p.Selection.Tier)
	assert.Equal(t, "0.0008", p.Selection.EstimatedFee)
	assert.Equal(t, "2.2008", p.Selection.TotalCost)

	status, _ = do(t, r, http.MethodPut, "/api/v1/drafts/r1/edit/save-default", gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, r, http.MethodPost, "/api/v1/drafts/r1/edit/confirm", nil)
	require.Equal(t, http.StatusOK, status, env.Msg)
	var result struct {
		Draft struct {
			Selection selectionJSON `json:"selection"`
			Alert     *model.Alert  `json:"alert"`
		} `json:"draft"`
		DefaultSaved bool `json:"defaultSaved"`
	}
	decode(t, env, &result)
	assert.True(t, result.DefaultSaved)
	assert.Equal(t, "custom", result.Draft.Selection.Tier)
	assert.Equal(t, "0x1dcd65000", result.Draft.Selection.MaxFeePerGas)
	assert.NotNil(t, result.Draft.Alert)

	status, env = do(t, r, http.MethodGet, "/api/v1/drafts/r1/edit", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 30202, env.Code)

	status, env = do(t, r, http.MethodGet, "/api/v1/drafts/r1", nil)
	require.Equal(t, http.StatusOK, status)
	draft.Selection = selectionJSON{}
	decode(t, env, &draft)
	assert.Equal(t, "2.2008", draft.Selection.TotalCost)
}

func TestEditCancelAndValidation(t *testing.T) {
	r := newTestRouter(t)

	status, env := do(t, r, http.MethodPost, "/api/v1/drafts", gin.H{
		"requestId":  "d1",
		"origin":     "dapp",
		"dappOrigin": "https://dapp.example.org",
		"from":       "0x5cfe73b6021e818b776b421b1c4db2474086a7e1",
		"value":      "0x29a2241af62c0000", // 3 ETH
		"suggestedFee": gin.H{
			"maxFeePerGas":         "0x4a817c800", // 20 gwei
			"maxPriorityFeePerGas": "0x77359400",  // 2 gwei
		},
	})
	require.Equal(t, http.StatusOK, status, env.Msg)
	var draft struct {
		Selection selectionJSON `json:"selection"`
	}
	decode(t, env, &draft)
	assert.Equal(t, "dappSuggested", draft.Selection.Tier)
	assert.Equal(t, "Site suggested", draft.Selection.TierLabel)
	assert.Equal(t, "0.00042", draft.Selection.EstimatedFee)
	assert.Equal(t, "3.00042", draft.Selection.TotalCost)

	status, _ = do(t, r, http.MethodPost, "/api/v1/drafts/d1/edit", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, r, http.MethodPut, "/api/v1/drafts/d1/edit/tier", gin.H{"tier": "turbo"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 10002, env.Code)

	status, env = do(t, r, http.MethodPut, "/api/v1/drafts/d1/edit/gas-limit", gin.H{"gasLimit": 100})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 10002, env.Code)

	status, env = do(t, r, http.MethodPut, "/api/v1/drafts/d1/edit/tier", gin.H{"tier": "high"})
	require.Equal(t, http.StatusOK, status, env.Msg)

	status, _ = do(t, r, http.MethodDelete, "/api/v1/drafts/d1/edit", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, r, http.MethodGet, "/api/v1/drafts/d1", nil)
	require.Equal(t, http.StatusOK, status)
	draft.Selection = selectionJSON{}
	decode(t, env, &draft)
	assert.Equal(t, "dappSuggested", draft.Selection.Tier)

	status, _ = do(t, r, http.MethodDelete, "/api/v1/drafts/d1", nil)
	require.Equal(t, http.StatusOK, status)
	status, env = do(t, r, http.MethodGet, "/api/v1/drafts/d1", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 30101, env.Code)
}

func TestCreateDraftBindErrors(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing from", gin.H{"origin": "wallet"}},
		{"bad address", gin.H{"origin": "wallet", "from": "0x1234"}},
		{"unknown origin", gin.H{"origin": "extension", "from": "0x5cfe73b6021e818b776b421b1c4db2474086a7e1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, http.MethodPost, "/api/v1/drafts", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, 10002, env.Code)
		})
	}

	// 钱包请求不能携带建议费用
	status, env := do(t, r, http.MethodPost, "/api/v1/drafts", gin.H{
		"origin": "wallet",
		"from":   "0x5cfe73b6021e818b776b421b1c4db2474086a7e1",
		"suggestedFee": gin.H{
			"maxFeePerGas":         "0x4a817c800",
			"maxPriorityFeePerGas": "0x77359400",
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 30001, env.Code)
}

func TestCreateDraftRejectsGasBelowTransferMinimum(t *testing.T) {
	r := newTestRouter(t)

	status, env := do(t, r, http.MethodPost, "/api/v1/drafts", gin.H{
		"origin": "wallet",
		"from":   "0x5cfe73b6021e818b776b421b1c4db2474086a7e1",
		"gas":    "0x1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 30001, env.Code)

	status, _ = do(t, r, http.MethodPost, "/api/v1/drafts", gin.H{
		"origin": "wallet",
		"from":   "0x5cfe73b6021e818b776b421b1c4db2474086a7e1",
		"gas":    "0x5208",
	})
	assert.Equal(t, http.StatusOK, status)
}
