package cpu

import (
	"encoding/binary"
	"errors"
	"io"
)

// Image is a program object image: a load origin and the words that are
// placed in memory starting at that origin.
type Image struct {
	Origin uint16
	Words  []uint16
}

// ParseImage decodes an object image of big-endian words, where the
// first word is the origin. Images that do not fit between the origin
// and the end of memory are rejected rather than wrapped.
func ParseImage(data []byte) (img *Image, err error) {
	switch {
	case len(data)%2 != 0:
		err = errors.Join(ErrImageFormat, ErrImageOdd)
		return
	case len(data) < 2:
		err = errors.Join(ErrImageFormat, ErrImageEmpty)
		return
	}

	origin := binary.BigEndian.Uint16(data)
	count := len(data)/2 - 1
	if int(origin)+count > MEMORY_SIZE {
		err = errors.Join(ErrImageFormat, ErrImageOverflow)
		return
	}

	img = &Image{
		Origin: origin,
		Words:  make([]uint16, count),
	}
	for n := range img.Words {
		img.Words[n] = binary.BigEndian.Uint16(data[2+n*2:])
	}

	return
}

// ReadImage reads and decodes an object image.
func ReadImage(input io.Reader) (img *Image, err error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return
	}

	return ParseImage(data)
}

// Bytes encodes the image in object file format.
func (img *Image) Bytes() (data []byte) {
	data = make([]byte, 0, 2+len(img.Words)*2)
	data = binary.BigEndian.AppendUint16(data, img.Origin)
	for _, word := range img.Words {
		data = binary.BigEndian.AppendUint16(data, word)
	}

	return
}
