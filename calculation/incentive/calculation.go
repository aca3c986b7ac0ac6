// Package incentive recomputes a farm's earnings the slow way: block by block, splitting each
// block's emission across whoever held stake during it. The ledger's accumulator must agree with
// it up to rounding.
package incentive

import (
	"math/big"
	"sort"

	"github.com/SundaeSwap-finance/ogmigo/v6/ouroboros/chainsync/num"
	"github.com/SundaeSwap-finance/sundae-farm/calculation"
	"github.com/SundaeSwap-finance/sundae-farm/types"
)

// Scale keeps the fractional part of each block's split; earnings are accumulated scaled and only
// truncated once at the end
const Scale = 1_000_000_000_000_000_000

// StakeInterval is an owner holding Amount in a pool during blocks [Start, End)
type StakeInterval struct {
	PoolID uint64
	Owner  string
	Amount uint64
	Start  uint64
	End    uint64
}

type CalculationOutputs struct {
	StartBlock      uint64
	EndBlock        uint64
	TotalEmissions  uint64
	TotalDelegators uint64

	// Scaled by Scale
	WeightsByPool    map[uint64]map[string]num.Int
	EmissionsByOwner map[uint64]map[string]uint64
}

func rewardPerBlock(program types.Program) *big.Int {
	return program.RewardPerBlock.ToBig()
}

// StakeAt sums, per owner, what was held in the pool during block b
func StakeAt(stakes []StakeInterval, poolID uint64, block uint64) (map[string]uint64, uint64) {
	byOwner := map[string]uint64{}
	total := uint64(0)
	for _, stake := range stakes {
		if stake.PoolID != poolID || stake.Amount == 0 {
			continue
		}
		if block < stake.Start || block >= stake.End {
			continue
		}
		byOwner[stake.Owner] += stake.Amount
		total += stake.Amount
	}
	return byOwner, total
}

// CalculateWeights walks every block from the program start to endBlock and credits each owner
// with their share of the pool's emission for that block, scaled by Scale
func CalculateWeights(
	program types.Program,
	allocPoints map[uint64]uint64,
	stakes []StakeInterval,
	endBlock uint64,
) map[uint64]map[string]num.Int {
	totalAllocPoint := uint64(0)
	for _, alloc := range allocPoints {
		totalAllocPoint += alloc
	}
	rate := rewardPerBlock(program)
	weightsByPool := map[uint64]map[string]num.Int{}
	for poolID, allocPoint := range allocPoints {
		weights := map[string]num.Int{}
		weightsByPool[poolID] = weights
		if totalAllocPoint == 0 || allocPoint == 0 {
			continue
		}
		for block := program.StartBlock; block < endBlock; block++ {
			byOwner, total := StakeAt(stakes, poolID, block)
			if total == 0 {
				continue
			}
			multiplier := calculation.Multiplier(program, block, block+1).ToBig()
			emission := new(big.Int).Mul(multiplier, rate)
			emission.Mul(emission, new(big.Int).SetUint64(allocPoint))
			emission.Mul(emission, new(big.Int).SetUint64(Scale))
			for owner, amount := range byOwner {
				frac := new(big.Int).Mul(emission, new(big.Int).SetUint64(amount))
				frac.Div(frac, new(big.Int).SetUint64(totalAllocPoint))
				frac.Div(frac, new(big.Int).SetUint64(total))
				share := num.Int(*frac)
				if existing, ok := weights[owner]; ok {
					share = share.Add(existing)
				}
				weights[owner] = share
			}
		}
	}
	return weightsByPool
}

// CalculateEarnings truncates the scaled weights to whole reward units. Dust is dropped, never
// handed out to balance the books.
func CalculateEarnings(
	program types.Program,
	allocPoints map[uint64]uint64,
	stakes []StakeInterval,
	endBlock uint64,
) CalculationOutputs {
	weightsByPool := CalculateWeights(program, allocPoints, stakes, endBlock)
	emissionsByOwner := map[uint64]map[string]uint64{}
	owners := map[string]bool{}
	total := uint64(0)
	for poolID, weights := range weightsByPool {
		emissions := map[string]uint64{}
		for owner, weight := range weights {
			emission := new(big.Int).Div(weight.BigInt(), new(big.Int).SetUint64(Scale)).Uint64()
			emissions[owner] = emission
			owners[owner] = true
			total += emission
		}
		emissionsByOwner[poolID] = emissions
	}
	return CalculationOutputs{
		StartBlock:       program.StartBlock,
		EndBlock:         endBlock,
		TotalEmissions:   total,
		TotalDelegators:  uint64(len(owners)),
		WeightsByPool:    weightsByPool,
		EmissionsByOwner: emissionsByOwner,
	}
}

// Owners lists everyone who earned anything, in a stable order
func (o CalculationOutputs) Owners() []string {
	seen := map[string]bool{}
	var owners []string
	for _, emissions := range o.EmissionsByOwner {
		for owner := range emissions {
			if !seen[owner] {
				seen[owner] = true
				owners = append(owners, owner)
			}
		}
	}
	sort.Strings(owners)
	return owners
}
