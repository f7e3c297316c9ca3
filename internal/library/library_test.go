package library

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schollz/smplr/internal/smartbuf"
)

func TestFirstReturnsEmptyForOutOfRangeBank(t *testing.T) {
	lib := &Library{empty: smartbuf.NewEmpty()}
	got := lib.First(5)
	assert.Same(t, lib.empty, got)
}

func TestByNameReturnsEmptyOnMiss(t *testing.T) {
	lib := &Library{empty: smartbuf.NewEmpty()}
	lib.banks = [][]*smartbuf.SmartBuffer{{{FileName: "a.wav"}}}
	got := lib.ByName(0, "nope.wav")
	assert.Same(t, lib.empty, got)
}

func TestSiblingWrapsWithEuclideanModulo(t *testing.T) {
	lib := &Library{empty: smartbuf.NewEmpty()}
	lib.banks = [][]*smartbuf.SmartBuffer{{
		{FileName: "a.wav"}, {FileName: "b.wav"}, {FileName: "c.wav"},
	}}
	got := lib.Sibling(0, "a.wav", -1)
	assert.Equal(t, "c.wav", got.FileName)

	got = lib.Sibling(0, "a.wav", 4)
	assert.Equal(t, "b.wav", got.FileName)
}

func TestEuclideanMod(t *testing.T) {
	assert.Equal(t, 2, euclideanMod(-1, 3))
	assert.Equal(t, 0, euclideanMod(3, 3))
}
