// Package localvenue adapts a second, independently-priced pool engine as
// the external venue. It stands in for a remote router in local and test
// deployments while keeping the adapter surface identical to one.
package localvenue

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	ammapp "github.com/dexforge/dexcore/business/amm/app"
	ammdomain "github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/cache"
	"github.com/dexforge/dexcore/internal/circuitbreaker"
)

const tracerName = "arbitrage.localvenue"

// quoteTTL keeps detection probes cheap within one scan without serving a
// stale price across scans.
const quoteTTL = 500 * time.Millisecond

// Venue exposes a second pool engine through the external-quoter surface.
// Quotes go through a circuit breaker and a short-lived cache; swaps always
// hit the engine directly.
type Venue struct {
	engine *ammapp.Engine
	book   ammapp.TokenBook

	breaker *circuitbreaker.CircuitBreaker[*uint256.Int]
	quotes  *cache.Cache[string, *uint256.Int]
	tracer  trace.Tracer
}

// New creates a venue adapter over engine settling against book.
func New(engine *ammapp.Engine, book ammapp.TokenBook) *Venue {
	return &Venue{
		engine:  engine,
		book:    book,
		breaker: circuitbreaker.New[*uint256.Int](circuitbreaker.DefaultConfig("external-venue")),
		quotes:  cache.New[string, *uint256.Int](quoteTTL),
		tracer:  otel.Tracer(tracerName),
	}
}

// Quote prices an exact-input trade on the venue. Results are cached for the
// detection pass only; execution re-validation must use QuoteFresh.
func (v *Venue) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	ctx, span := v.tracer.Start(ctx, "venue.quote")
	defer span.End()

	key := quoteKey(tokenIn, tokenOut, amountIn)
	if out, ok := v.quotes.Get(ctx, key); ok {
		return new(uint256.Int).Set(out), nil
	}

	out, err := v.quoteLive(tokenIn, tokenOut, amountIn)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	v.quotes.Set(ctx, key, out, quoteTTL)
	return new(uint256.Int).Set(out), nil
}

// QuoteFresh prices against current reserves, never the cache. A detection
// probe a moment earlier must not mask reserve movement at execution time.
func (v *Venue) QuoteFresh(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	_, span := v.tracer.Start(ctx, "venue.quote_fresh")
	defer span.End()

	out, err := v.quoteLive(tokenIn, tokenOut, amountIn)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return new(uint256.Int).Set(out), nil
}

func (v *Venue) quoteLive(tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	out, err := v.breaker.Execute(func() (*uint256.Int, error) {
		return v.engine.Quote(tokenIn, tokenOut, amountIn)
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeQuoteFailed, "venue quote")
	}
	return out, nil
}

// Reserves returns the venue's current reserves oriented as (in, out).
func (v *Venue) Reserves(_ context.Context, tokenIn, tokenOut common.Address) (*uint256.Int, *uint256.Int, error) {
	pool := v.engine.GetPool(tokenIn, tokenOut)
	if pool == nil {
		return nil, nil, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContextf("%s/%s", tokenIn.Hex(), tokenOut.Hex()))
	}
	reserveIn, reserveOut := pool.ReservesFor(tokenIn)
	return reserveIn, reserveOut, nil
}

// SwapPath executes an exact-input trade for operator, approving the venue's
// vault pull first.
func (v *Venue) SwapPath(ctx context.Context, operator common.Address, tokenIn, tokenOut common.Address, amountIn, amountOutMin *uint256.Int) (*uint256.Int, error) {
	ctx, span := v.tracer.Start(ctx, "venue.swap")
	defer span.End()

	if err := v.book.Approve(tokenIn, operator, v.engine.Vault(), amountIn); err != nil {
		return nil, err
	}

	call := ammdomain.NewCallContext(operator)
	out, err := v.engine.Swap(ctx, call, ammapp.SwapRequest{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		AmountOutMin: amountOutMin,
		Deadline:     call.Now.Add(time.Minute),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// Engine exposes the underlying engine for seeding and tests.
func (v *Venue) Engine() *ammapp.Engine {
	return v.engine
}

// Close releases the quote cache janitor.
func (v *Venue) Close() {
	v.quotes.Close()
}

func quoteKey(tokenIn, tokenOut common.Address, amountIn *uint256.Int) string {
	return fmt.Sprintf("%s:%s:%s", tokenIn.Hex(), tokenOut.Hex(), amountIn.Dec())
}
