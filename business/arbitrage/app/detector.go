package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	ammapp "github.com/dexforge/dexcore/business/amm/app"
	"github.com/dexforge/dexcore/business/arbitrage/domain"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/logger"
)

const meterName = "arbitrage"

// DetectorConfig holds the scoring thresholds.
type DetectorConfig struct {
	// MinGapBps is the smallest cross-venue price gap worth pursuing.
	MinGapBps int64

	// HighConfidenceBps is the gap above which the coarse confidence
	// score jumps to its high tier.
	HighConfidenceBps int64

	// ProbeAmount is the fixed probe input used to compare venue prices.
	ProbeAmount *uint256.Int

	// ReserveDivisor bounds the trade to a fraction of the cheap venue's
	// in-side reserve.
	ReserveDivisor uint64

	// MinProfit discards plans whose simulated surplus is below it.
	MinProfit *uint256.Int

	Gas domain.GasModel
}

type detectorMetrics struct {
	scansTotal        metric.Int64Counter
	opportunitiesSeen metric.Int64Counter
}

// Detector compares the local venue's prices against an external one and
// turns exploitable gaps into stored opportunities.
type Detector struct {
	engine   *ammapp.Engine
	external ExternalQuoter
	store    *OpportunityStore
	cfg      DetectorConfig

	log     *logger.Logger
	metrics *detectorMetrics
}

// NewDetector creates a detector scoring against store.
func NewDetector(cfg DetectorConfig, engine *ammapp.Engine, external ExternalQuoter, store *OpportunityStore, log *logger.Logger) (*Detector, error) {
	d := &Detector{
		engine:   engine,
		external: external,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
	if err := d.initMetrics(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Detector) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	d.metrics = &detectorMetrics{}

	d.metrics.scansTotal, err = meter.Int64Counter(
		"arb_scans_total",
		metric.WithDescription("Total detection scans"),
	)
	if err != nil {
		return err
	}

	d.metrics.opportunitiesSeen, err = meter.Int64Counter(
		"arb_opportunities_total",
		metric.WithDescription("Total opportunities detected"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Detect scans every pool once and stores each exploitable gap. A pool that
// fails to quote is skipped, not fatal to the scan.
func (d *Detector) Detect(ctx context.Context) ([]*domain.Opportunity, error) {
	d.metrics.scansTotal.Add(ctx, 1)

	var found []*domain.Opportunity
	for _, pool := range d.engine.Pools() {
		if !pool.HasLiquidity() {
			continue
		}

		opp, err := d.evaluatePair(ctx, pool.TokenA, pool.TokenB)
		if err != nil {
			if apperror.IsCode(err, apperror.CodeQuoteFailed) || apperror.IsCode(err, apperror.CodeInsufficientLiquidity) {
				continue
			}
			return nil, err
		}
		if opp == nil {
			continue
		}

		d.store.Put(opp)
		found = append(found, opp)
		d.metrics.opportunitiesSeen.Add(ctx, 1)
		d.log.Info(ctx, "opportunity detected",
			"id", opp.ID,
			"direction", opp.Direction.String(),
			"net_profit", opp.NetProfit.Dec(),
			"profit_after_gas", opp.ProfitAfterGas.String(),
			"confidence", opp.Confidence,
		)
	}
	return found, nil
}

// evaluatePair prices one pair on both venues and builds an opportunity when
// the gap clears the thresholds. Returns (nil, nil) when no gap exists.
func (d *Detector) evaluatePair(ctx context.Context, base, quote common.Address) (*domain.Opportunity, error) {
	outSelf, err := d.engine.Quote(base, quote, d.cfg.ProbeAmount)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "local probe quote")
	}
	outExt, err := d.external.Quote(ctx, base, quote, d.cfg.ProbeAmount)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "external probe quote")
	}
	if outSelf.IsZero() || outExt.IsZero() {
		return nil, nil
	}

	gapBps := priceGapBps(outSelf, outExt)
	if gapBps.LessThan(decimal.NewFromInt(d.cfg.MinGapBps)) {
		return nil, nil
	}

	// More output per probe means the quote token is cheaper here, so buy
	// where the output is larger and sell on the other venue.
	direction := domain.BuyExternalSellSelf
	if outSelf.Gt(outExt) {
		direction = domain.BuySelfSellExternal
	}

	amountIn, err := d.tradeSize(ctx, direction, base, quote)
	if err != nil {
		return nil, err
	}
	if amountIn.IsZero() {
		return nil, nil
	}

	amountOut1, amountOut2, err := d.simulateLegs(ctx, direction, base, quote, amountIn, false)
	if err != nil {
		return nil, err
	}
	if !amountOut2.Gt(amountIn) {
		return nil, nil
	}

	netProfit := new(uint256.Int).Sub(amountOut2, amountIn)
	if netProfit.Lt(d.cfg.MinProfit) {
		return nil, nil
	}

	gasEstimate := d.cfg.Gas.Estimate(true)
	profitAfterGas := new(big.Int).Sub(netProfit.ToBig(), d.cfg.Gas.Cost(gasEstimate))

	confidence := 80
	if gapBps.GreaterThan(decimal.NewFromInt(d.cfg.HighConfidenceBps)) {
		confidence = 95
	}

	return &domain.Opportunity{
		Kind:           domain.KindCrossDEX,
		Direction:      direction,
		Path:           []common.Address{base, quote, base},
		Amounts:        []*uint256.Int{amountIn, amountOut1, amountOut2},
		NetProfit:      netProfit,
		GasEstimate:    gasEstimate,
		ProfitAfterGas: profitAfterGas,
		Confidence:     confidence,
		CreatedAt:      time.Now(),
	}, nil
}

// Reprice re-derives the trade input for a previously detected gap from
// current reserves, bypassing any quote cache. It fails with a staleness
// error when the gap has closed, reversed, or no longer survives a trade at
// the re-derived size.
func (d *Detector) Reprice(ctx context.Context, base, quote common.Address, direction domain.Direction) (*uint256.Int, error) {
	outSelf, err := d.engine.Quote(base, quote, d.cfg.ProbeAmount)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "local probe quote")
	}
	outExt, err := d.external.QuoteFresh(ctx, base, quote, d.cfg.ProbeAmount)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "external probe quote")
	}
	if outSelf.IsZero() || outExt.IsZero() {
		return nil, apperror.New(apperror.CodeOpportunityStale, apperror.WithContext("venue lost liquidity"))
	}

	if priceGapBps(outSelf, outExt).LessThan(decimal.NewFromInt(d.cfg.MinGapBps)) {
		return nil, apperror.New(apperror.CodeOpportunityStale, apperror.WithContext("gap closed"))
	}

	current := domain.BuyExternalSellSelf
	if outSelf.Gt(outExt) {
		current = domain.BuySelfSellExternal
	}
	if current != direction {
		return nil, apperror.New(apperror.CodeOpportunityStale, apperror.WithContext("gap reversed"))
	}

	amountIn, err := d.tradeSize(ctx, direction, base, quote)
	if err != nil {
		return nil, err
	}
	if amountIn.IsZero() {
		return nil, apperror.New(apperror.CodeOpportunityStale, apperror.WithContext("reserve too small"))
	}

	// A probe-size gap can survive while the sized trade does not: depth
	// impact plus both fees scale with the trade, the gap does not. Only a
	// full re-simulation of both legs proves the trade still clears.
	_, amountOut2, err := d.simulateLegs(ctx, direction, base, quote, amountIn, true)
	if err != nil {
		return nil, err
	}
	if !amountOut2.Gt(amountIn) {
		return nil, apperror.New(apperror.CodeOpportunityStale,
			apperror.WithContext("round trip no longer profitable at size"))
	}
	if new(uint256.Int).Sub(amountOut2, amountIn).Lt(d.cfg.MinProfit) {
		return nil, apperror.New(apperror.CodeOpportunityStale,
			apperror.WithContext("profit below threshold at size"))
	}
	return amountIn, nil
}

// tradeSize bounds the trade to a fraction of the cheap venue's in-side
// reserve.
func (d *Detector) tradeSize(ctx context.Context, direction domain.Direction, base, quote common.Address) (*uint256.Int, error) {
	var reserveIn *uint256.Int
	if direction == domain.BuySelfSellExternal {
		pool := d.engine.GetPool(base, quote)
		if pool == nil {
			return nil, apperror.New(apperror.CodePoolNotFound)
		}
		reserveIn, _ = pool.ReservesFor(base)
	} else {
		var err error
		reserveIn, _, err = d.external.Reserves(ctx, base, quote)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "external reserves")
		}
	}
	return new(uint256.Int).Div(reserveIn, uint256.NewInt(d.cfg.ReserveDivisor)), nil
}

// simulateLegs prices the buy on the cheap venue and the sell of its output
// on the expensive one, each with the venue's own quote function. With fresh
// set, external quotes bypass the venue's cache.
func (d *Detector) simulateLegs(ctx context.Context, direction domain.Direction, base, quote common.Address, amountIn *uint256.Int, fresh bool) (*uint256.Int, *uint256.Int, error) {
	if direction == domain.BuySelfSellExternal {
		out1, err := d.engine.Quote(base, quote, amountIn)
		if err != nil {
			return nil, nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "leg one quote")
		}
		out2, err := d.externalQuote(ctx, quote, base, out1, fresh)
		if err != nil {
			return nil, nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "leg two quote")
		}
		return out1, out2, nil
	}

	out1, err := d.externalQuote(ctx, base, quote, amountIn, fresh)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "leg one quote")
	}
	out2, err := d.engine.Quote(quote, base, out1)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "leg two quote")
	}
	return out1, out2, nil
}

func (d *Detector) externalQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int, fresh bool) (*uint256.Int, error) {
	if fresh {
		return d.external.QuoteFresh(ctx, tokenIn, tokenOut, amountIn)
	}
	return d.external.Quote(ctx, tokenIn, tokenOut, amountIn)
}

// priceGapBps computes |selfOut - extOut| * 10000 / selfOut.
func priceGapBps(selfOut, extOut *uint256.Int) decimal.Decimal {
	a := decimal.NewFromBigInt(selfOut.ToBig(), 0)
	b := decimal.NewFromBigInt(extOut.ToBig(), 0)
	return a.Sub(b).Abs().Mul(decimal.NewFromInt(10_000)).Div(a)
}
