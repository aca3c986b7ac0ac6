// Package metrics exposes the farm's operational counters. Until Initialize is called every
// recording function is a no-op, so the ledger can record unconditionally.
package metrics

import (
	"math/big"
	"net/http"
	"strconv"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sundae_farm"

type Recorder interface {
	Operation(kind, result string)
	RewardMinted(amount *uint256.Int)
	PoolState(poolID uint64, totalStaked, accRewardPerShare *uint256.Int)
	Handler() http.Handler
}

var (
	mutex    sync.RWMutex
	recorder Recorder = noopRecorder{}
)

// Initialize switches recording to a fresh prometheus registry; later calls keep the first one
func Initialize() Recorder {
	mutex.Lock()
	defer mutex.Unlock()
	if _, ok := recorder.(*prometheusRecorder); !ok {
		recorder = newPrometheusRecorder()
	}
	return recorder
}

func get() Recorder {
	mutex.RLock()
	defer mutex.RUnlock()
	return recorder
}

func Operation(kind, result string) { get().Operation(kind, result) }

func RewardMinted(amount *uint256.Int) { get().RewardMinted(amount) }

func PoolState(poolID uint64, totalStaked, accRewardPerShare *uint256.Int) {
	get().PoolState(poolID, totalStaked, accRewardPerShare)
}

func Handler() http.Handler { return get().Handler() }

type noopRecorder struct{}

func (noopRecorder) Operation(string, string)                     {}
func (noopRecorder) RewardMinted(*uint256.Int)                    {}
func (noopRecorder) PoolState(uint64, *uint256.Int, *uint256.Int) {}
func (noopRecorder) Handler() http.Handler                        { return http.NotFoundHandler() }

type prometheusRecorder struct {
	registry     *prometheus.Registry
	operations   *prometheus.CounterVec
	rewardMinted prometheus.Counter
	totalStaked  *prometheus.GaugeVec
	accumulator  *prometheus.GaugeVec
}

func newPrometheusRecorder() *prometheusRecorder {
	r := &prometheusRecorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Ledger calls by kind and result",
		}, []string{"kind", "result"}),
		rewardMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_minted_total",
			Help:      "Reward paid out through the mint gateway",
		}),
		totalStaked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_total_staked",
			Help:      "Stake held by each pool",
		}, []string{"pool"}),
		accumulator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_acc_reward_per_share",
			Help:      "Accumulated reward per share of each pool, scaled by 1e12",
		}, []string{"pool"}),
	}
	r.registry.MustRegister(r.operations, r.rewardMinted, r.totalStaked, r.accumulator)
	return r
}

// Gauges are floats; precision loss on very large amounts is fine for dashboards
func toFloat(x *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}

func (r *prometheusRecorder) Operation(kind, result string) {
	r.operations.WithLabelValues(kind, result).Inc()
}

func (r *prometheusRecorder) RewardMinted(amount *uint256.Int) {
	r.rewardMinted.Add(toFloat(amount))
}

func (r *prometheusRecorder) PoolState(poolID uint64, totalStaked, accRewardPerShare *uint256.Int) {
	pool := strconv.FormatUint(poolID, 10)
	r.totalStaked.WithLabelValues(pool).Set(toFloat(totalStaked))
	r.accumulator.WithLabelValues(pool).Set(toFloat(accRewardPerShare))
}

func (r *prometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
