package observer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/logger"
	"wallet-gas/pkg/monitor"
)

// FeeBackend 估算所需的节点接口，*ethclient.Client 满足该接口
type FeeBackend interface {
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// tierPolicy 每个档位的 base fee / tip 放大系数 (百分比) 与预计确认时间
type tierPolicy struct {
	basePct int64
	tipPct  int64
	seconds int64
}

var policies = map[model.FeeTier]tierPolicy{
	model.TierLow:    {basePct: 110, tipPct: 80, seconds: 60},
	model.TierMedium: {basePct: 120, tipPct: 100, seconds: 30},
	model.TierHigh:   {basePct: 200, tipPct: 150, seconds: 15},
}

// minTip 节点返回 0 tip 时的兜底值 (1 gwei)
var minTip = big.NewInt(1_000_000_000)

// EthFeeObserver 基于节点数据给出 low/medium/high 三档估算
// 结果按网络缓存 ttl，过期后下一次调用才会重新拉取 (没有后台刷新)
type EthFeeObserver struct {
	backend FeeBackend
	network string
	cache   *gocache.Cache
	log     *zap.Logger
}

// Dial 连接 RPC 节点
func Dial(rpcURL, network string, ttl time.Duration) (*EthFeeObserver, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return NewEthFeeObserver(client, network, ttl), nil
}

func NewEthFeeObserver(backend FeeBackend, network string, ttl time.Duration) *EthFeeObserver {
	return &EthFeeObserver{
		backend: backend,
		network: network,
		cache:   gocache.New(ttl, 2*ttl),
		log:     logger.Named("eth_fee_observer"),
	}
}

// GetEstimates 实现 service.FeeEstimateProvider
func (o *EthFeeObserver) GetEstimates(ctx context.Context, network string) (model.FeeEstimates, error) {
	if network != o.network {
		return model.FeeEstimates{}, errno.ErrEstimatesUnavailable.WithMessage(fmt.Sprintf("observer serves %s, not %s", o.network, network))
	}
	if cached, ok := o.cache.Get(network); ok {
		return cloneEstimates(cached.(model.FeeEstimates)), nil
	}

	start := time.Now()
	tip, err := o.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return model.FeeEstimates{}, fmt.Errorf("%w: suggest tip: %v", errno.ErrEstimatesUnavailable, err)
	}
	header, err := o.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return model.FeeEstimates{}, fmt.Errorf("%w: latest header: %v", errno.ErrEstimatesUnavailable, err)
	}
	monitor.Fee.EstimateFetchSeconds.Observe(time.Since(start).Seconds())

	est := DeriveEstimates(header, tip)
	o.cache.SetDefault(network, est)
	o.log.Debug("fee estimates refreshed",
		zap.String("network", network),
		zap.Stringer("base_fee", header.BaseFee),
		zap.Stringer("tip", tip),
		zap.Float64("congestion", est.Congestion))
	return cloneEstimates(est), nil
}

// DeriveEstimates 由最新区块头与建议 tip 推导三档费用
// maxFeePerGas = baseFee * basePct/100 + tip * tipPct/100
// 非 EIP-1559 链 (baseFee 为空) 时 maxFee 等于 priority fee
func DeriveEstimates(header *types.Header, tip *big.Int) model.FeeEstimates {
	if tip == nil || tip.Sign() <= 0 {
		tip = minTip
	}

	tierEstimate := func(tier model.FeeTier) model.FeeEstimate {
		p := policies[tier]
		priority := percent(tip, p.tipPct)
		maxFee := new(big.Int).Set(priority)
		if header.BaseFee != nil {
			maxFee.Add(maxFee, percent(header.BaseFee, p.basePct))
		}
		return model.FeeEstimate{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: priority, EstimatedConfirmSeconds: p.seconds}
	}

	var congestion float64
	if header.GasLimit > 0 {
		congestion = float64(header.GasUsed) / float64(header.GasLimit)
	}

	return model.FeeEstimates{
		Low:        tierEstimate(model.TierLow),
		Medium:     tierEstimate(model.TierMedium),
		High:       tierEstimate(model.TierHigh),
		Congestion: congestion,
	}
}

func percent(v *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(pct))
	return out.Quo(out, big.NewInt(100))
}

func cloneEstimates(e model.FeeEstimates) model.FeeEstimates {
	return model.FeeEstimates{
		Low:        e.Low.Clone(),
		Medium:     e.Medium.Clone(),
		High:       e.High.Clone(),
		Congestion: e.Congestion,
	}
}
