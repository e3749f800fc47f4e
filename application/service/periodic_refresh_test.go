package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	runs  []BankRun
	err   error
}

func (f *fakeRunner) Run(_ context.Context, banks []string) ([]BankRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, banks)
	return f.runs, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeInvalidator struct {
	mu    sync.Mutex
	count int
	err   error
}

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return f.err
}

func (f *fakeInvalidator) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func TestPeriodicRefresh_Refresh(t *testing.T) {
	runner := &fakeRunner{runs: []BankRun{{Bank: "CBE", Inserted: 3}, {Bank: "BOA", Err: errors.New("boom")}}, err: errors.New("pipeline: 1 of 2 banks failed")}
	inv := &fakeInvalidator{}
	p := NewPeriodicRefresh(runner, inv, []string{"CBE", "BOA"}, time.Hour, discardLogger())

	p.Refresh(context.Background())

	require.Equal(t, 1, runner.callCount())
	assert.Equal(t, []string{"CBE", "BOA"}, runner.calls[0])
	assert.Equal(t, 1, inv.invalidations())
}

func TestPeriodicRefresh_NothingStoredKeepsCache(t *testing.T) {
	runner := &fakeRunner{runs: []BankRun{{Bank: "CBE"}}}
	inv := &fakeInvalidator{}
	p := NewPeriodicRefresh(runner, inv, nil, time.Hour, discardLogger())

	p.Refresh(context.Background())

	assert.Equal(t, 0, inv.invalidations())
}

func TestPeriodicRefresh_StartStop(t *testing.T) {
	runner := &fakeRunner{runs: []BankRun{{Bank: "CBE", Inserted: 1}}}
	inv := &fakeInvalidator{}
	p := NewPeriodicRefresh(runner, inv, nil, 10*time.Millisecond, discardLogger())

	p.Start(context.Background())
	p.Start(context.Background())
	require.Eventually(t, func() bool { return inv.invalidations() >= 2 }, time.Second, 5*time.Millisecond)
	p.Stop()

	calls := runner.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, runner.callCount())
	p.Stop()
}

func TestPeriodicRefresh_Disabled(t *testing.T) {
	runner := &fakeRunner{}
	p := NewPeriodicRefresh(runner, &fakeInvalidator{}, nil, 0, discardLogger())

	assert.False(t, p.Enabled())
	p.Start(context.Background())
	p.Stop()
	assert.Equal(t, 0, runner.callCount())
}
