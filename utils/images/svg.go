package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Tile size is limited by configuration but picture may come with any
// viewBox, keep allocations sane.
var maxRasterDim = 8192

// RasterizeSVG renders vector image so it fits into w x h box keeping aspect
// ratio and centers it on a transparent canvas of exactly that size.
func RasterizeSVG(svgData []byte, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("bad tile size %dx%d", w, h)
	}
	if w > maxRasterDim || h > maxRasterDim {
		return nil, fmt.Errorf("tile size %dx%d is too big, limit is %d", w, h, maxRasterDim)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData), oksvg.WarnErrorMode)
	if err != nil {
		return nil, err
	}

	iw, ih := float64(w), float64(h)
	if icon.ViewBox.W > 0 && icon.ViewBox.H > 0 {
		scale := math.Min(float64(w)/icon.ViewBox.W, float64(h)/icon.ViewBox.H)
		iw = math.Max(math.Round(icon.ViewBox.W*scale), 1)
		ih = math.Max(math.Round(icon.ViewBox.H*scale), 1)
	}
	icon.SetTarget(0, 0, iw, ih)

	pic := image.NewRGBA(image.Rect(0, 0, int(iw), int(ih)))
	scanner := rasterx.NewScannerGV(int(iw), int(ih), pic, pic.Bounds())
	icon.Draw(rasterx.NewDasher(int(iw), int(ih), scanner), 1.0)

	return imaging.PasteCenter(imaging.New(w, h, color.Transparent), pic), nil
}

// RasterizeSVGFile reads vector image from src and writes w x h PNG tile to dst.
func RasterizeSVGFile(src, dst string, w, h int) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	img, err := RasterizeSVG(data, w, h)
	if err != nil {
		return fmt.Errorf("unable to rasterize %s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := imaging.Encode(out, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		out.Close()
		return fmt.Errorf("unable to encode tile %s: %w", dst, err)
	}
	return out.Close()
}
