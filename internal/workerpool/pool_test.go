package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize_AutoDetectsWhenNonPositive(t *testing.T) {
	assert.Equal(t, 4, Size(4))
	assert.Greater(t, Size(0), 0)
	assert.Greater(t, Size(-1), 0)
}

func TestRun_ExecutesEveryItem(t *testing.T) {
	var count int64
	items := []int{1, 2, 3, 4, 5}

	err := Run(context.Background(), 2, items, func(_ context.Context, item int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})

	require.NoError(t, err)
	assert.EqualValues(t, len(items), count)
}

func TestRun_PropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	items := []int{1, 2, 3}

	err := Run(context.Background(), 1, items, func(_ context.Context, item int) error {
		if item == 2 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
}

func TestRunCollecting_RunsEveryItemRegardlessOfFailures(t *testing.T) {
	boom := errors.New("boom")
	items := []int{1, 2, 3}

	errs := RunCollecting(context.Background(), 2, items, func(_ context.Context, item int) error {
		if item == 2 {
			return boom
		}
		return nil
	})

	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], boom)
	assert.NoError(t, errs[2])
}
