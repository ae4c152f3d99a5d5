package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForVisitsEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 2}

	n := 1000
	visits := make([]int32, n)
	For(n, func(i int) {
		atomic.AddInt32(&visits[i], 1)
	}, cfg)

	for i, v := range visits {
		assert.Equal(t, int32(1), v, "index %d", i)
	}
}

func TestForSequentialFallback(t *testing.T) {
	for _, cfg := range []Config{
		{Enabled: false},
		{Enabled: true, NumWorkers: 1},
		{Enabled: true, NumWorkers: 8, MinChunkSize: 100},
	} {
		var order []int
		For(50, func(i int) {
			order = append(order, i) // safe only when sequential
		}, cfg)
		assert.Len(t, order, 50)
		for i, v := range order {
			assert.Equal(t, i, v)
		}
	}
}

func TestForZero(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, DefaultConfig())
	assert.False(t, called)
}
