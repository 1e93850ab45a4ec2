package imagehash_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/robalyx/sentinel/internal/imagehash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8((x * 255) / (w - 1))
			img.Set(x, y, color.NRGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	return img
}

func checkerboard(w, h, cell int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := color.NRGBA{A: 255}
			if (x/cell+y/cell)%2 == 0 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestComputeIsStableForIdenticalBytes(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, gradient(64, 48))

	first, err := imagehash.Decode(data)
	require.NoError(t, err)
	second, err := imagehash.Decode(data)
	require.NoError(t, err)

	a, err := imagehash.Compute(first)
	require.NoError(t, err)
	b, err := imagehash.Compute(second)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.PHash, 16)
	assert.Len(t, a.DHash, 16)
	assert.Len(t, a.AHash, 16)
}

func TestComputeSeparatesDifferentImages(t *testing.T) {
	t.Parallel()

	a, err := imagehash.Compute(gradient(64, 64))
	require.NoError(t, err)
	b, err := imagehash.Compute(checkerboard(64, 64, 8))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := imagehash.Decode([]byte("definitely not an image"))
	require.Error(t, err)
}

func TestDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a, b    string
		want    int
		wantErr bool
	}{
		{name: "identical", a: "00ff00ff00ff00ff", b: "00ff00ff00ff00ff", want: 0},
		{name: "one bit", a: "0000000000000000", b: "0000000000000001", want: 1},
		{name: "all bits", a: "0000000000000000", b: "ffffffffffffffff", want: 64},
		{name: "too short", a: "abc", b: "0000000000000000", wantErr: true},
		{name: "not hex", a: "zzzzzzzzzzzzzzzz", b: "0000000000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := imagehash.Distance(tt.a, tt.b)
			if tt.wantErr {
				require.ErrorIs(t, err, imagehash.ErrInvalidHash)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, imagehash.Valid("0123456789abcdef"))
	assert.False(t, imagehash.Valid("0123"))
	assert.False(t, imagehash.Valid("0123456789abcdeg"))
}
