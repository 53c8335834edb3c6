// Package httpapi exposes a read-only JSON view of the pool ledger and
// pending opportunities.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"

	ammapp "github.com/dexforge/dexcore/business/amm/app"
	arbapp "github.com/dexforge/dexcore/business/arbitrage/app"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/logger"
)

// Server serves the read-only API. Mutating operations stay behind the
// engine's Go interface; the HTTP surface never writes.
type Server struct {
	engine *ammapp.Engine
	opps   *arbapp.OpportunityStore
	log    *logger.Logger

	srv *http.Server
}

// New creates a server on addr.
func New(addr string, engine *ammapp.Engine, opps *arbapp.OpportunityStore, log *logger.Logger) *Server {
	s := &Server{
		engine: engine,
		opps:   opps,
		log:    log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/pools", s.handlePools).Methods(http.MethodGet)
	r.HandleFunc("/v1/pools/{tokenA}/{tokenB}", s.handlePool).Methods(http.MethodGet)
	r.HandleFunc("/v1/quote", s.handleQuote).Methods(http.MethodGet)
	r.HandleFunc("/v1/opportunities", s.handleOpportunities).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error(context.Background(), "api server failed", "error", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type poolResponse struct {
	TokenA             string `json:"token_a"`
	TokenB             string `json:"token_b"`
	ReserveA           string `json:"reserve_a"`
	ReserveB           string `json:"reserve_b"`
	TotalSupply        string `json:"total_supply"`
	FeeBps             uint16 `json:"fee_bps"`
	CumulativePriceA   string `json:"cumulative_price_a"`
	CumulativePriceB   string `json:"cumulative_price_b"`
	BlockTimestampLast uint64 `json:"block_timestamp_last"`
	Active             bool   `json:"active"`
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	pools := s.engine.Pools()
	out := make([]poolResponse, 0, len(pools))
	for _, p := range pools {
		out = append(out, poolResponse{
			TokenA:             p.TokenA.Hex(),
			TokenB:             p.TokenB.Hex(),
			ReserveA:           p.ReserveA.Dec(),
			ReserveB:           p.ReserveB.Dec(),
			TotalSupply:        p.TotalSupply.Dec(),
			FeeBps:             p.FeeBps,
			CumulativePriceA:   p.CumulativePriceA.Dec(),
			CumulativePriceB:   p.CumulativePriceB.Dec(),
			BlockTimestampLast: p.BlockTimestampLast,
			Active:             p.Active,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenA, ok := parseAddress(vars["tokenA"])
	if !ok {
		s.writeError(w, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("invalid token address")))
		return
	}
	tokenB, ok := parseAddress(vars["tokenB"])
	if !ok {
		s.writeError(w, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("invalid token address")))
		return
	}

	p := s.engine.GetPool(tokenA, tokenB)
	if p == nil {
		s.writeError(w, apperror.New(apperror.CodePoolNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, poolResponse{
		TokenA:             p.TokenA.Hex(),
		TokenB:             p.TokenB.Hex(),
		ReserveA:           p.ReserveA.Dec(),
		ReserveB:           p.ReserveB.Dec(),
		TotalSupply:        p.TotalSupply.Dec(),
		FeeBps:             p.FeeBps,
		CumulativePriceA:   p.CumulativePriceA.Dec(),
		CumulativePriceB:   p.CumulativePriceB.Dec(),
		BlockTimestampLast: p.BlockTimestampLast,
		Active:             p.Active,
	})
}

type quoteResponse struct {
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tokenIn, okIn := parseAddress(q.Get("token_in"))
	tokenOut, okOut := parseAddress(q.Get("token_out"))
	if !okIn || !okOut {
		s.writeError(w, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("invalid token address")))
		return
	}
	amountIn, err := uint256.FromDecimal(q.Get("amount_in"))
	if err != nil {
		s.writeError(w, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("invalid amount_in")))
		return
	}

	amountOut, err := s.engine.Quote(tokenIn, tokenOut, amountIn)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quoteResponse{
		TokenIn:   tokenIn.Hex(),
		TokenOut:  tokenOut.Hex(),
		AmountIn:  amountIn.Dec(),
		AmountOut: amountOut.Dec(),
	})
}

type opportunityResponse struct {
	ID             uint64   `json:"id"`
	Kind           string   `json:"kind"`
	Direction      string   `json:"direction"`
	Path           []string `json:"path"`
	Amounts        []string `json:"amounts"`
	NetProfit      string   `json:"net_profit"`
	GasEstimate    uint64   `json:"gas_estimate"`
	ProfitAfterGas string   `json:"profit_after_gas"`
	Confidence     int      `json:"confidence"`
	CreatedAt      string   `json:"created_at"`
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := s.opps.All()
	out := make([]opportunityResponse, 0, len(opps))
	for _, o := range opps {
		path := make([]string, len(o.Path))
		for i, t := range o.Path {
			path[i] = t.Hex()
		}
		amounts := make([]string, len(o.Amounts))
		for i, a := range o.Amounts {
			amounts[i] = a.Dec()
		}
		out = append(out, opportunityResponse{
			ID:             o.ID,
			Kind:           string(o.Kind),
			Direction:      o.Direction.String(),
			Path:           path,
			Amounts:        amounts,
			NetProfit:      o.NetProfit.Dec(),
			GasEstimate:    o.GasEstimate,
			ProfitAfterGas: o.ProfitAfterGas.String(),
			Confidence:     o.Confidence,
			CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error(context.Background(), "response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := apperror.CodeUnknownError

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode()
		code = appErr.Code
	}

	s.writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
