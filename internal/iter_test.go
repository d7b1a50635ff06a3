package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	first := map[string]int{"a": 1}
	second := map[string]int{"b": 2, "c": 3}

	got := maps.Collect(IterSeq2Concat(maps.All(first), maps.All(second)))
	assert.Equal(map[string]int{"a": 1, "b": 2, "c": 3}, got)

	count := 0
	for range IterSeq2Concat(maps.All(second), maps.All(first)) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(2, count)

	got = maps.Collect(IterSeq2Concat[string, int]())
	assert.Empty(got)
}
