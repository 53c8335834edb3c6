package app

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	ammapp "github.com/dexforge/dexcore/business/amm/app"
	ammdomain "github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/business/amm/infra/tokenledger"
	"github.com/dexforge/dexcore/business/arbitrage/domain"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/logger"
)

var (
	baseToken  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	quoteToken = common.HexToAddress("0x2000000000000000000000000000000000000002")
	selfVault  = common.HexToAddress("0xFF00000000000000000000000000000000000001")
	extVault   = common.HexToAddress("0xFF00000000000000000000000000000000000002")
	operator   = common.HexToAddress("0xAC00000000000000000000000000000000000001")
	treasAddr  = common.HexToAddress("0xFE00000000000000000000000000000000000001")
)

// fakeVenue is a single-pair constant-product venue with its own reserves.
// It settles against the shared ledger so operator balances carry across
// venues.
type fakeVenue struct {
	mu           sync.Mutex
	ledger       *tokenledger.Ledger
	reserveBase  *uint256.Int
	reserveQuote *uint256.Int
	feeBps       uint16

	failSwap  bool
	failQuote bool
}

func newFakeVenue(ledger *tokenledger.Ledger, reserveBase, reserveQuote uint64) *fakeVenue {
	// The venue vault fronts its own inventory.
	ledger.Mint(baseToken, extVault, uint256.NewInt(reserveBase))
	ledger.Mint(quoteToken, extVault, uint256.NewInt(reserveQuote))

	return &fakeVenue{
		ledger:       ledger,
		reserveBase:  uint256.NewInt(reserveBase),
		reserveQuote: uint256.NewInt(reserveQuote),
		feeBps:       30,
	}
}

func (v *fakeVenue) orient(tokenIn common.Address) (*uint256.Int, *uint256.Int) {
	if tokenIn == baseToken {
		return v.reserveBase, v.reserveQuote
	}
	return v.reserveQuote, v.reserveBase
}

func (v *fakeVenue) Quote(_ context.Context, tokenIn, _ common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.failQuote {
		return nil, apperror.New(apperror.CodeQuoteFailed, apperror.WithContext("venue offline"))
	}
	reserveIn, reserveOut := v.orient(tokenIn)
	return ammapp.AmountOut(amountIn, reserveIn, reserveOut, v.feeBps)
}

// QuoteFresh matches Quote: the fake holds no cache to bypass.
func (v *fakeVenue) QuoteFresh(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	return v.Quote(ctx, tokenIn, tokenOut, amountIn)
}

func (v *fakeVenue) Reserves(_ context.Context, tokenIn, _ common.Address) (*uint256.Int, *uint256.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	reserveIn, reserveOut := v.orient(tokenIn)
	return new(uint256.Int).Set(reserveIn), new(uint256.Int).Set(reserveOut), nil
}

func (v *fakeVenue) SwapPath(_ context.Context, op common.Address, tokenIn, tokenOut common.Address, amountIn, _ *uint256.Int) (*uint256.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.failSwap {
		return nil, apperror.New(apperror.CodeQuoteFailed, apperror.WithContext("router reverted"))
	}

	reserveIn, reserveOut := v.orient(tokenIn)
	out, err := ammapp.AmountOut(amountIn, reserveIn, reserveOut, v.feeBps)
	if err != nil {
		return nil, err
	}

	if err := v.ledger.Transfer(tokenIn, op, extVault, amountIn); err != nil {
		return nil, err
	}
	if err := v.ledger.Transfer(tokenOut, extVault, op, out); err != nil {
		return nil, err
	}
	reserveIn.Add(reserveIn, amountIn)
	reserveOut.Sub(reserveOut, out)
	return out, nil
}

func newSelfEngine(t *testing.T, ledger *tokenledger.Ledger, reserveBase, reserveQuote uint64) *ammapp.Engine {
	t.Helper()

	log := logger.New(io.Discard, slog.LevelError, "test")
	engine, err := ammapp.NewEngine(ammapp.EngineConfig{
		Vault:         selfVault,
		DefaultFeeBps: 30,
	}, ledger, log)
	require.NoError(t, err)

	ledger.Mint(baseToken, selfVault, uint256.NewInt(reserveBase))
	ledger.Mint(quoteToken, selfVault, uint256.NewInt(reserveQuote))
	require.NoError(t, ledger.Approve(baseToken, selfVault, selfVault, uint256.NewInt(reserveBase)))
	require.NoError(t, ledger.Approve(quoteToken, selfVault, selfVault, uint256.NewInt(reserveQuote)))

	call := ammdomain.NewCallContext(selfVault)
	_, err = engine.CreatePool(context.Background(), call, ammapp.CreatePoolRequest{
		TokenA:   baseToken,
		TokenB:   quoteToken,
		AmountA:  uint256.NewInt(reserveBase),
		AmountB:  uint256.NewInt(reserveQuote),
		Deadline: call.Now.Add(time.Minute),
	})
	require.NoError(t, err)
	return engine
}

func testDetectorConfig(reserveDivisor uint64) DetectorConfig {
	return DetectorConfig{
		MinGapBps:         100,
		HighConfidenceBps: 500,
		ProbeAmount:       uint256.NewInt(1000),
		ReserveDivisor:    reserveDivisor,
		MinProfit:         uint256.NewInt(0),
		Gas: domain.GasModel{
			BaseGas:        120_000,
			CrossSurcharge: 80_000,
			GasPrice:       uint256.NewInt(0),
		},
	}
}

func newTestDetector(t *testing.T, engine *ammapp.Engine, venue ExternalQuoter, cfg DetectorConfig) (*Detector, *OpportunityStore) {
	t.Helper()

	store := NewOpportunityStore()
	log := logger.New(io.Discard, slog.LevelError, "test")
	d, err := NewDetector(cfg, engine, venue, store, log)
	require.NoError(t, err)
	return d, store
}

func TestDetectNoGap(t *testing.T) {
	ledger := tokenledger.New()
	engine := newSelfEngine(t, ledger, 1_000_000, 1_000_000)
	venue := newFakeVenue(ledger, 1_000_000, 1_000_000)
	d, store := newTestDetector(t, engine, venue, testDetectorConfig(20))

	found, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Empty(t, found)
	require.Zero(t, store.Len())
}

func TestDetectBuySelfSellExternal(t *testing.T) {
	ledger := tokenledger.New()
	// Quote token is far cheaper locally: the local pool pays ~2x the
	// external one per probe.
	engine := newSelfEngine(t, ledger, 1_000_000, 2_000_000)
	venue := newFakeVenue(ledger, 1_000_000, 1_000_000)
	d, store := newTestDetector(t, engine, venue, testDetectorConfig(20))

	found, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)

	opp := found[0]
	require.Equal(t, domain.KindCrossDEX, opp.Kind)
	require.Equal(t, domain.BuySelfSellExternal, opp.Direction)
	require.Equal(t, []common.Address{baseToken, quoteToken, baseToken}, opp.Path)

	// Sized at the local pool's base reserve / 20.
	require.Equal(t, uint64(50_000), opp.InputAmount().Uint64())
	require.True(t, opp.ExpectedReturn().Gt(opp.InputAmount()))
	require.True(t, opp.NetProfit.Sign() > 0)

	// ~50% gap is far beyond the high-confidence tier.
	require.Equal(t, 95, opp.Confidence)
	require.Equal(t, uint64(200_000), opp.GasEstimate)

	require.Equal(t, 1, store.Len())
}

func TestDetectBuyExternalSellSelf(t *testing.T) {
	ledger := tokenledger.New()
	engine := newSelfEngine(t, ledger, 1_000_000, 1_000_000)
	venue := newFakeVenue(ledger, 1_000_000, 2_000_000)
	d, _ := newTestDetector(t, engine, venue, testDetectorConfig(20))

	found, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, domain.BuyExternalSellSelf, found[0].Direction)

	// Sized from the external venue's base reserve instead.
	require.Equal(t, uint64(50_000), found[0].InputAmount().Uint64())
}

func TestDetectLowTierConfidence(t *testing.T) {
	ledger := tokenledger.New()
	// ~3% gap: above the 1% floor, below the 5% high-confidence tier. A
	// small divisor keeps price impact from eating the edge.
	engine := newSelfEngine(t, ledger, 1_000_000, 1_030_000)
	venue := newFakeVenue(ledger, 1_000_000, 1_000_000)
	d, _ := newTestDetector(t, engine, venue, testDetectorConfig(1000))

	found, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, 80, found[0].Confidence)
}

func TestDetectSkipsUnquotablePools(t *testing.T) {
	ledger := tokenledger.New()
	engine := newSelfEngine(t, ledger, 1_000_000, 2_000_000)
	venue := newFakeVenue(ledger, 1_000_000, 1_000_000)
	venue.failQuote = true
	d, store := newTestDetector(t, engine, venue, testDetectorConfig(20))

	found, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Empty(t, found)
	require.Zero(t, store.Len())
}

func TestProfitAfterGasSubtractsGasCost(t *testing.T) {
	ledger := tokenledger.New()
	engine := newSelfEngine(t, ledger, 1_000_000, 2_000_000)
	venue := newFakeVenue(ledger, 1_000_000, 1_000_000)

	cfg := testDetectorConfig(20)
	cfg.Gas.GasPrice = uint256.NewInt(1)
	d, _ := newTestDetector(t, engine, venue, cfg)

	found, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)

	opp := found[0]
	wantAfterGas := new(big.Int).Sub(opp.NetProfit.ToBig(), big.NewInt(200_000))
	require.Equal(t, wantAfterGas, opp.ProfitAfterGas)
}

func TestRepriceDetectsClosedGap(t *testing.T) {
	ledger := tokenledger.New()
	engine := newSelfEngine(t, ledger, 1_000_000, 2_000_000)
	venue := newFakeVenue(ledger, 1_000_000, 1_000_000)
	d, _ := newTestDetector(t, engine, venue, testDetectorConfig(20))

	// Gap open: repricing succeeds.
	_, err := d.Reprice(context.Background(), baseToken, quoteToken, domain.BuySelfSellExternal)
	require.NoError(t, err)

	// The wrong direction is stale even while the gap is open.
	_, err = d.Reprice(context.Background(), baseToken, quoteToken, domain.BuyExternalSellSelf)
	require.True(t, apperror.IsCode(err, apperror.CodeOpportunityStale))
}
