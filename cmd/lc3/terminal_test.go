package main

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	lc3io "github.com/ezrec/lc3/io"
)

func TestTerminalPipe(t *testing.T) {
	assert := assert.New(t)

	rd, wr, err := os.Pipe()
	if !assert.NoError(err) {
		return
	}
	defer rd.Close()

	tm, err := openTerminal(rd)
	assert.NoError(err)
	defer tm.Close()

	_, ok := tm.Poll()
	assert.False(ok)

	_, err = wr.Write([]byte("a\r\x7f"))
	assert.NoError(err)
	assert.NoError(tm.Wait(context.Background()))

	keys := []byte{}
	for range 3 {
		key, ok := tm.Poll()
		assert.True(ok)
		keys = append(keys, key)
	}
	assert.Equal([]byte{'a', '\n', 0x08}, keys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(tm.Wait(ctx), context.Canceled)

	wr.Close()
	_, ok = tm.Poll()
	assert.False(ok)
	assert.ErrorIs(tm.Wait(context.Background()), io.EOF)
}

func TestDefines(t *testing.T) {
	assert := assert.New(t)

	d := defines{}
	assert.NoError(d.Set("START=x4000"))
	assert.NoError(d.Set("EMPTY="))
	assert.Error(d.Set("NOVALUE"))
	assert.Error(d.Set("=1"))

	assert.Equal(defines{"START": "x4000", "EMPTY": ""}, d)
}

func TestAwaitInput(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()

	assert.ErrorIs(awaitInput(ctx, nil, nil), ErrInputExhausted)

	tape := &lc3io.Tape{Input: strings.NewReader("k")}
	assert.NoError(awaitInput(ctx, nil, tape))

	key, ok := tape.Poll()
	assert.True(ok)
	assert.Equal(byte('k'), key)
	_, ok = tape.Poll()
	assert.False(ok)
	assert.ErrorIs(awaitInput(ctx, nil, tape), ErrInputExhausted)

	rd, wr, err := os.Pipe()
	if !assert.NoError(err) {
		return
	}
	defer rd.Close()

	tm, err := openTerminal(rd)
	assert.NoError(err)
	defer tm.Close()

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err = awaitInput(canceled, tm, nil)
	assert.ErrorIs(err, context.Canceled)
	assert.NotErrorIs(err, ErrInputExhausted)

	wr.Close()
	_, ok = tm.Poll()
	assert.False(ok)
	err = awaitInput(ctx, tm, nil)
	assert.ErrorIs(err, ErrInputExhausted)
	assert.ErrorIs(err, io.EOF)
}
