package groutine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(time.Second):
		t.Fatal("worker did not finish")
		return nil
	}
}

func TestGo_NameAndResult(t *testing.T) {
	done := make(chan error, 1)
	var name string

	Go(context.Background(), "scan-worker", func(ctx context.Context) error {
		name = GetName(ctx)
		return errors.New("radio busy")
	}, func(err error) { done <- err })

	err := waitDone(t, done)
	assert.EqualError(t, err, "radio busy")
	assert.Equal(t, "scan-worker", name)
}

func TestGo_RecoversPanic(t *testing.T) {
	done := make(chan error, 1)

	//nolint:staticcheck // nil parent context is part of the contract
	Go(nil, "connect-worker", func(ctx context.Context) error {
		panic("backend exploded")
	}, func(err error) { done <- err })

	err := waitDone(t, done)
	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "connect-worker", perr.Name)
	assert.Equal(t, "backend exploded", perr.Value)
	assert.NotEmpty(t, perr.Stack)
	assert.Equal(t, "connect-worker: panic: backend exploded", err.Error())
}

func TestGo_NilDone(t *testing.T) {
	ran := make(chan struct{})
	Go(context.Background(), "fire-and-forget", func(context.Context) error {
		close(ran)
		return nil
	}, nil)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker did not run")
	}
}

func TestGetName_Empty(t *testing.T) {
	assert.Empty(t, GetName(context.Background()))
	//nolint:staticcheck // nil context is handled
	assert.Empty(t, GetName(nil))
}
