package utils

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryRecoversPanic(t *testing.T) {
	var caught interface{}
	var traceback string
	Try(func() {
		panic("boom")
	}, func(err interface{}, tb string) {
		caught = err
		traceback = tb
	})
	assert.Equal(t, "boom", caught)
	assert.Contains(t, traceback, "Traceback")
}

func TestTryNoPanic(t *testing.T) {
	called := false
	Try(func() { called = true }, func(err interface{}, tb string) {
		t.Fatal("handler should not run")
	})
	assert.True(t, called)
}

func TestWeightedChoice(t *testing.T) {
	weights := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}

	r := rand.New(rand.NewSource(42))
	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		counts[WeightedChoice(r, weights)]++
	}
	// 大致符合权重分布即可
	assert.Greater(t, counts["a"], counts["b"])
	assert.Greater(t, counts["b"], counts["c"])
	assert.Greater(t, counts["c"], 0)
}

func TestWeightedChoiceDeterministic(t *testing.T) {
	weights := map[string]float64{"x": 1, "y": 2}
	first := WeightedChoice(rand.New(rand.NewSource(7)), weights)
	second := WeightedChoice(rand.New(rand.NewSource(7)), weights)
	assert.Equal(t, first, second)
}

func TestWeightedChoiceEdgeCases(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	assert.Equal(t, "", WeightedChoice(r, nil))
	assert.Equal(t, "", WeightedChoice(r, map[string]float64{"a": 0}))
	require.Equal(t, "only", WeightedChoice(r, map[string]float64{"only": 0.3}))
}
