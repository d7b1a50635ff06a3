package io

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Device errors
	ErrDisplayWrite = errors.New(f("display write failed"))
)
