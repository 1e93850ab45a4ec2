// Package imagehash computes perceptual fingerprints of images.
package imagehash

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register the webp decoder
)

// ErrInvalidHash is returned when a hash string is not a 64-bit hex value.
var ErrInvalidHash = errors.New("invalid image hash")

// Hashes holds the three hash variants of one image as 16 character hex strings.
type Hashes struct {
	DHash string
	PHash string
	AHash string
}

// Decode decodes PNG, JPEG, GIF, BMP, TIFF and WebP data.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}

// Compute returns the difference, perceptual and average hashes of img.
func Compute(img image.Image) (Hashes, error) {
	dhash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return Hashes{}, fmt.Errorf("failed to compute difference hash: %w", err)
	}

	phash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Hashes{}, fmt.Errorf("failed to compute perceptual hash: %w", err)
	}

	ahash, err := goimagehash.AverageHash(img)
	if err != nil {
		return Hashes{}, fmt.Errorf("failed to compute average hash: %w", err)
	}

	return Hashes{
		DHash: format(dhash),
		PHash: format(phash),
		AHash: format(ahash),
	}, nil
}

// Distance returns the number of differing bits between two perceptual hashes.
func Distance(a, b string) (int, error) {
	x, err := parse(a)
	if err != nil {
		return 0, err
	}

	y, err := parse(b)
	if err != nil {
		return 0, err
	}

	return goimagehash.NewImageHash(x, goimagehash.PHash).Distance(goimagehash.NewImageHash(y, goimagehash.PHash))
}

// Valid reports whether s is a well-formed hash.
func Valid(s string) bool {
	_, err := parse(s)
	return err == nil
}

// format drops the kind prefix of ToString so stored hashes stay plain hex.
func format(hash *goimagehash.ImageHash) string {
	return fmt.Sprintf("%016x", hash.GetHash())
}

func parse(s string) (uint64, error) {
	if len(s) != 16 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}

	return v, nil
}
