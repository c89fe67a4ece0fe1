// Package images has helpers to recognize, prepare and inspect pictures
// used as sprite tiles.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// KindSVG is reported for vector images, filetype does not know about them.
const KindSVG = "svg"

// enough for filetype and for svg root element after xml prolog and comments
const sniffLen = 4096

var ErrNotImage = errors.New("not an image")

// Detect returns short kind of image stored in file ("png", "jpg", "svg",
// ...) or ErrNotImage.
func Detect(fname string) (string, error) {
	f, err := os.Open(fname)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return DetectBytes(head[:n])
}

// DetectBytes is Detect for data already in memory.
func DetectBytes(data []byte) (string, error) {
	if filetype.IsImage(data) {
		kind, err := filetype.Match(data)
		if err == nil && kind != filetype.Unknown {
			return kind.Extension, nil
		}
	}
	if looksLikeSVG(data) {
		return KindSVG, nil
	}
	return "", ErrNotImage
}

func looksLikeSVG(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	data = bytes.TrimLeft(data, "\xef\xbb\xbf \t\r\n")
	if !bytes.HasPrefix(data, []byte("<")) {
		return false
	}
	return bytes.Contains(data, []byte("<svg"))
}

// Size returns pixel dimensions of raster image file without decoding all
// of it.
func Size(fname string) (image.Point, error) {
	f, err := os.Open(fname)
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, fmt.Errorf("unable to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Point{}, fmt.Errorf("bad %s image dimensions %dx%d", format, cfg.Width, cfg.Height)
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, nil
}
