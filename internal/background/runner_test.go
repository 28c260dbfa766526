package background

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_RecordsResults(t *testing.T) {
	r := NewRunner(context.Background(), nil)

	r.Go("ok", func(context.Context) error { return nil })
	r.Go("fails", func(context.Context) error { return errors.New("boom") })
	r.Go("panics", func(context.Context) error { panic("bad") })
	r.Wait()

	assert.Len(t, r.Results(), 3)

	ok, found := r.Find("ok")
	require.True(t, found)
	assert.True(t, ok.OK())
	assert.False(t, ok.Finished.Before(ok.Started))

	failed, found := r.Find("fails")
	require.True(t, found)
	assert.EqualError(t, failed.Err, "boom")

	panicked, found := r.Find("panics")
	require.True(t, found)
	assert.ErrorContains(t, panicked.Err, "panic: bad")

	assert.Len(t, r.Failures(), 2)

	_, found = r.Find("missing")
	assert.False(t, found)
}

func TestRunner_TasksOutliveParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(ctx, nil)
	cancel()

	r.Go("late", func(ctx context.Context) error { return ctx.Err() })
	r.Wait()

	res, found := r.Find("late")
	require.True(t, found)
	assert.NoError(t, res.Err)
}

func TestRunner_KeepsLatestResults(t *testing.T) {
	r := NewRunner(context.Background(), nil)

	for i := 0; i < MaxResults+10; i++ {
		r.Go(fmt.Sprintf("task-%d", i), func(context.Context) error { return nil })
		r.Wait()
	}

	results := r.Results()
	require.Len(t, results, MaxResults)
	assert.Equal(t, "task-10", results[0].Name)
	assert.Equal(t, fmt.Sprintf("task-%d", MaxResults+9), results[len(results)-1].Name)

	_, found := r.Find("task-9")
	assert.False(t, found)
}
