package calculation

import (
	"errors"
	"testing"

	"github.com/SundaeSwap-finance/sundae-farm/types"
	"github.com/SundaeSwap-finance/sundae-farm/utilities"
	"github.com/holiman/uint256"
	"github.com/tj/assert"
)

func Test_Multiplier(t *testing.T) {
	program := utilities.SampleProgram(100, 500, 600)

	type testCase struct {
		label    string
		from, to uint64
		expected uint64
	}
	testCases := []testCase{
		{label: "entirely in bonus", from: 500, to: 510, expected: 100},
		{label: "entirely after bonus", from: 600, to: 610, expected: 10},
		{label: "straddling bonus end", from: 590, to: 605, expected: 105},
		{label: "ending exactly at bonus end", from: 590, to: 600, expected: 100},
		{label: "before start", from: 100, to: 500, expected: 0},
		{label: "clamped to start", from: 100, to: 505, expected: 50},
		{label: "empty interval", from: 550, to: 550, expected: 0},
		{label: "reversed interval", from: 560, to: 550, expected: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			assert.EqualValues(t, tc.expected, Multiplier(program, tc.from, tc.to).Uint64())
		})
	}
}

func Test_MultiplierIsAdditive(t *testing.T) {
	program := utilities.SampleProgram(100, 500, 600)
	for split := uint64(450); split <= 650; split += 7 {
		whole := Multiplier(program, 450, 650).Uint64()
		parts := Multiplier(program, 450, split).Uint64() + Multiplier(program, split, 650).Uint64()
		assert.EqualValues(t, whole, parts, "split at %v", split)
	}
}

func Test_PoolReward(t *testing.T) {
	program := utilities.SampleProgram(100, 400, 1000)

	pool := utilities.SamplePool(0, 10, 10)
	pool.LastRewardBlock = 410
	reward, err := PoolReward(program, pool, 10, 420)
	assert.Nil(t, err)
	assert.EqualValues(t, 10_000, reward.Uint64())

	// One third of the weight, rounded down
	pool.LastRewardBlock = 420
	reward, err = PoolReward(program, pool, 30, 425)
	assert.Nil(t, err)
	assert.EqualValues(t, 1666, reward.Uint64())

	reward, err = PoolReward(program, pool, 0, 425)
	assert.Nil(t, err)
	assert.True(t, reward.IsZero())

	pool.AllocPoint = 0
	reward, err = PoolReward(program, pool, 30, 425)
	assert.Nil(t, err)
	assert.True(t, reward.IsZero())
}

func Test_AccruePool(t *testing.T) {
	program := utilities.SampleProgram(100, 300, 1000)
	pool := utilities.SamplePool(0, 100, 10)
	pool.LastRewardBlock = 310

	assert.Nil(t, AccruePool(program, &pool, 100, 314))
	assert.EqualValues(t, 314, pool.LastRewardBlock)
	assert.Equal(t, "400000000000000", pool.AccRewardPerShare.Dec())

	// A second update in the same block, or an earlier one, changes nothing
	before := pool
	assert.Nil(t, AccruePool(program, &pool, 100, 314))
	assert.Equal(t, before, pool)
	assert.Nil(t, AccruePool(program, &pool, 100, 312))
	assert.Equal(t, before, pool)
}

func Test_AccrueEmptyPool(t *testing.T) {
	program := utilities.SampleProgram(100, 200, 1000)
	pool := utilities.SamplePool(0, 100, 0)
	pool.LastRewardBlock = 200

	assert.Nil(t, AccruePool(program, &pool, 100, 210))
	assert.EqualValues(t, 210, pool.LastRewardBlock)
	assert.True(t, pool.AccRewardPerShare.IsZero())
}

func Test_PendingReward(t *testing.T) {
	pool := utilities.SamplePool(0, 100, 10)
	pool.AccRewardPerShare = *uint256.NewInt(400_000_000_000_000)

	position := types.Position{Amount: *uint256.NewInt(10)}
	pending, err := PendingReward(pool, position)
	assert.Nil(t, err)
	assert.EqualValues(t, 4000, pending.Uint64())

	position.RewardDebt = *uint256.NewInt(1000)
	pending, err = PendingReward(pool, position)
	assert.Nil(t, err)
	assert.EqualValues(t, 3000, pending.Uint64())

	debt, err := RewardDebt(&position.Amount, &pool.AccRewardPerShare)
	assert.Nil(t, err)
	assert.EqualValues(t, 4000, debt.Uint64())

	position.RewardDebt = *uint256.NewInt(4001)
	_, err = PendingReward(pool, position)
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))
}

func Test_DustIsNeverPaid(t *testing.T) {
	program := utilities.SampleProgram(1, 0, 0)
	pool := utilities.SamplePool(0, 1, 3)

	assert.Nil(t, AccruePool(program, &pool, 1, 1))
	assert.EqualValues(t, 333_333_333_333, pool.AccRewardPerShare.Uint64())

	share := types.Position{Amount: *uint256.NewInt(1)}
	pending, err := PendingReward(pool, share)
	assert.Nil(t, err)
	assert.True(t, pending.IsZero())

	whole := types.Position{Amount: *uint256.NewInt(3)}
	pending, err = PendingReward(pool, whole)
	assert.Nil(t, err)
	assert.EqualValues(t, 0, pending.Uint64())
}

func Test_Overflow(t *testing.T) {
	program := utilities.SampleProgram(0, 0, 100)
	program.RewardPerBlock.SetAllOne()
	pool := utilities.SamplePool(0, 1, 1)

	_, err := PoolReward(program, pool, 1, 10)
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))

	before := pool
	err = AccruePool(program, &pool, 1, 10)
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))
	assert.Equal(t, before, pool)

	allOnes := new(uint256.Int).SetAllOne()
	_, err = SafeAdd(allOnes, uint256.NewInt(1))
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))
	_, err = SafeSub(uint256.NewInt(0), uint256.NewInt(1))
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))
	_, err = RewardDebt(allOnes, uint256.NewInt(2))
	assert.True(t, errors.Is(err, ErrArithmeticOverflow))
}
