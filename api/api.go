// Package api serves a read-only JSON view of the farm: pools, positions, pending rewards and the
// event journal. Every amount is rendered as a decimal string, since they routinely exceed what a
// JSON number can hold.
package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SundaeSwap-finance/sundae-farm/ledger"
	"github.com/SundaeSwap-finance/sundae-farm/logger"
	"github.com/SundaeSwap-finance/sundae-farm/metrics"
	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
)

const defaultEventLimit = 100

// Reader is the slice of the ledger the api needs
type Reader interface {
	Program() types.Program
	Globals() (types.Globals, error)
	Pools() ([]types.Pool, error)
	Pool(poolID uint64) (types.Pool, error)
	Position(poolID uint64, owner string) (types.Position, error)
	PendingReward(poolID uint64, owner string) (*uint256.Int, error)
	Events(from uint64, limit int) ([]types.Event, error)
}

type Server struct {
	reader Reader
	logger zerolog.Logger
}

func New(reader Reader) *Server {
	return &Server{reader: reader, logger: logger.GetForComponent("api")}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Get("/program", s.GetProgram)
	r.Route("/pools", func(r chi.Router) {
		r.Get("/", s.ListPools)
		r.Get("/{pid}", s.GetPool)
		r.Get("/{pid}/positions/{owner}", s.GetPosition)
		r.Get("/{pid}/pending/{owner}", s.GetPending)
	})
	r.Get("/events", s.ListEvents)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Served request")
	})
}

type ProgramResponse struct {
	ID              string `json:"id"`
	RewardAsset     string `json:"rewardAsset"`
	RewardPerBlock  string `json:"rewardPerBlock"`
	StartBlock      uint64 `json:"startBlock"`
	BonusEndBlock   uint64 `json:"bonusEndBlock"`
	BonusMultiplier uint64 `json:"bonusMultiplier"`
	TotalAllocPoint uint64 `json:"totalAllocPoint"`
	PoolCount       uint64 `json:"poolCount"`
	LastBlock       uint64 `json:"lastBlock"`
}

type PoolResponse struct {
	ID                uint64 `json:"id"`
	StakeToken        string `json:"stakeToken"`
	AllocPoint        uint64 `json:"allocPoint"`
	LastRewardBlock   uint64 `json:"lastRewardBlock"`
	AccRewardPerShare string `json:"accRewardPerShare"`
	TotalStaked       string `json:"totalStaked"`
}

type PositionResponse struct {
	PoolID     uint64 `json:"poolId"`
	Owner      string `json:"owner"`
	Amount     string `json:"amount"`
	RewardDebt string `json:"rewardDebt"`
}

type PendingResponse struct {
	PoolID  uint64 `json:"poolId"`
	Owner   string `json:"owner"`
	Pending string `json:"pending"`
}

type EventResponse struct {
	Seq               uint64 `json:"seq"`
	Block             uint64 `json:"block"`
	Kind              string `json:"kind"`
	PoolID            uint64 `json:"poolId"`
	Caller            string `json:"caller"`
	Amount            string `json:"amount"`
	Reward            string `json:"reward"`
	AllocPoint        uint64 `json:"allocPoint"`
	StakeToken        string `json:"stakeToken,omitempty"`
	AccRewardPerShare string `json:"accRewardPerShare"`
	TotalStaked       string `json:"totalStaked"`
	Hash              string `json:"hash"`
}

func toPool(p types.Pool) PoolResponse {
	return PoolResponse{
		ID:                p.ID,
		StakeToken:        p.StakeToken.String(),
		AllocPoint:        p.AllocPoint,
		LastRewardBlock:   p.LastRewardBlock,
		AccRewardPerShare: p.AccRewardPerShare.Dec(),
		TotalStaked:       p.TotalStaked.Dec(),
	}
}

func toEvent(e types.Event) EventResponse {
	return EventResponse{
		Seq:               e.Seq,
		Block:             e.Block,
		Kind:              string(e.Kind),
		PoolID:            e.PoolID,
		Caller:            e.Caller,
		Amount:            e.Amount.Dec(),
		Reward:            e.Reward.Dec(),
		AllocPoint:        e.AllocPoint,
		StakeToken:        e.StakeToken.String(),
		AccRewardPerShare: e.AccRewardPerShare.Dec(),
		TotalStaked:       e.TotalStaked.Dec(),
		Hash:              hexHash(e.Hash),
	}
}

func (s *Server) GetProgram(w http.ResponseWriter, r *http.Request) {
	globals, err := s.reader.Globals()
	if err != nil {
		s.fail(w, err)
		return
	}
	program := s.reader.Program()
	s.respond(w, ProgramResponse{
		ID:              program.ID,
		RewardAsset:     program.RewardAsset.String(),
		RewardPerBlock:  program.RewardPerBlock.Dec(),
		StartBlock:      program.StartBlock,
		BonusEndBlock:   program.BonusEndBlock,
		BonusMultiplier: program.BonusMultiplier,
		TotalAllocPoint: globals.TotalAllocPoint,
		PoolCount:       globals.PoolCount,
		LastBlock:       globals.LastBlock,
	})
}

func (s *Server) ListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.reader.Pools()
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := make([]PoolResponse, 0, len(pools))
	for _, pool := range pools {
		resp = append(resp, toPool(pool))
	}
	s.respond(w, resp)
}

func (s *Server) GetPool(w http.ResponseWriter, r *http.Request) {
	poolID, ok := poolParam(w, r)
	if !ok {
		return
	}
	pool, err := s.reader.Pool(poolID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, toPool(pool))
}

func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request) {
	poolID, ok := poolParam(w, r)
	if !ok {
		return
	}
	position, err := s.reader.Position(poolID, chi.URLParam(r, "owner"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, PositionResponse{
		PoolID:     position.PoolID,
		Owner:      position.Owner,
		Amount:     position.Amount.Dec(),
		RewardDebt: position.RewardDebt.Dec(),
	})
}

func (s *Server) GetPending(w http.ResponseWriter, r *http.Request) {
	poolID, ok := poolParam(w, r)
	if !ok {
		return
	}
	owner := chi.URLParam(r, "owner")
	pending, err := s.reader.PendingReward(poolID, owner)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, PendingResponse{PoolID: poolID, Owner: owner, Pending: pending.Dec()})
}

// ListEvents pages through the journal; from is the first sequence number to return
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	from := uint64(1)
	limit := defaultEventLimit
	query := r.URL.Query()
	if v := query.Get("from"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if v := query.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	events, err := s.reader.Events(from, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := make([]EventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, toEvent(event))
	}
	s.respond(w, resp)
}

func hexHash(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

func poolParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	poolID, err := strconv.ParseUint(chi.URLParam(r, "pid"), 10, 64)
	if err != nil {
		http.Error(w, "invalid pool id", http.StatusBadRequest)
		return 0, false
	}
	return poolID, true
}

func (s *Server) respond(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidPool):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidOwner):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
