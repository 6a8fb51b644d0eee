package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/lock"
	"wallet-gas/pkg/storage"
	"wallet-gas/pkg/units"
)

const testNetwork = "mainnet"

var (
	testAccount = common.HexToAddress("0x5cfe73b6021e818b776b421b1c4db2474086a7e1")
	testTo      = common.HexToAddress("0x2f318c334780961fb129d2a6c30d0763d9a5c970")
)

func gwei(n int64) *big.Int {
	return units.GweiToWei(n)
}

func estimate(maxFee, priority int64) model.FeeEstimate {
	return model.FeeEstimate{MaxFeePerGas: gwei(maxFee), MaxPriorityFeePerGas: gwei(priority)}
}

// baseline 低/中/高: 50/100/150 gwei
func baseline() model.FeeEstimates {
	return model.FeeEstimates{
		Low:        model.FeeEstimate{MaxFeePerGas: gwei(50), MaxPriorityFeePerGas: gwei(1), EstimatedConfirmSeconds: 60},
		Medium:     model.FeeEstimate{MaxFeePerGas: gwei(100), MaxPriorityFeePerGas: gwei(2), EstimatedConfirmSeconds: 30},
		High:       model.FeeEstimate{MaxFeePerGas: gwei(150), MaxPriorityFeePerGas: gwei(3), EstimatedConfirmSeconds: 15},
		Congestion: 0.4,
	}
}

// flakyStore 可注入写失败次数的持久化实现
type flakyStore struct {
	*storage.MemoryStore

	mu         sync.Mutex
	failWrites int
	writes     int
}

func newFlakyStore(failWrites int) *flakyStore {
	return &flakyStore{MemoryStore: storage.NewMemoryStore(), failWrites: failWrites}
}

func (f *flakyStore) Write(ctx context.Context, key string, value interface{}) error {
	f.mu.Lock()
	f.writes++
	fail := f.failWrites > 0
	if fail {
		f.failWrites--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("storage unavailable")
	}
	return f.MemoryStore.Write(ctx, key, value)
}

func (f *flakyStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fixture struct {
	provider *StaticEstimateProvider
	store    *flakyStore
	defaults *CustomDefaultService
	tiers    *TierService
	safety   *SafetyService
	drafts   *DraftService
	flow     *EditFlowService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		provider: NewStaticEstimateProvider(),
		store:    newFlakyStore(0),
	}
	require.NoError(t, f.provider.SetEstimates(testNetwork, baseline()))
	f.defaults = NewCustomDefaultService(f.store)
	f.tiers = NewTierService(f.provider, f.defaults)
	f.safety = NewSafetyService(f.provider)
	f.drafts = NewDraftService(f.tiers, 21000)
	f.flow = NewEditFlowService(f.drafts, f.tiers, f.safety, f.defaults, lock.NewLocalLock(), time.Minute)
	return f
}

func (f *fixture) walletDraft(t *testing.T, id string, valueEth string) *model.TransactionDraft {
	t.Helper()
	v, err := units.ParseEther(valueEth)
	require.NoError(t, err)
	d, err := f.drafts.Create(context.Background(), DraftRequest{
		RequestID: id,
		Origin:    model.OriginWallet,
		Account:   testAccount,
		Network:   testNetwork,
		To:        testTo,
		Value:     v,
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) dappDraft(t *testing.T, id string, valueEth string, suggestion model.FeeEstimate) *model.TransactionDraft {
	t.Helper()
	v, err := units.ParseEther(valueEth)
	require.NoError(t, err)
	d, err := f.drafts.Create(context.Background(), DraftRequest{
		RequestID:    id,
		Origin:       model.OriginDapp,
		DappOrigin:   "https://dapp.example.org",
		Account:      testAccount,
		Network:      testNetwork,
		To:           testTo,
		Value:        v,
		SuggestedFee: &suggestion,
	})
	require.NoError(t, err)
	return d
}
