package imager

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"slices"

	"github.com/ericpauley/go-quantize/quantize"

	// Decoders for what Figma or a proxy in front of it may serve.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ProcessedImage is a recompressed image ready for upload.
type ProcessedImage struct {
	Name         string
	Data         []byte
	Format       Format
	OriginalSize int
}

// Compress recompresses data for the requested format. quality is in [0, 1]; lower values give
// smaller output. SVG and PDF are returned untouched.
//
// quality selects a step on a fixed ladder and the result is the smallest encoding produced at
// that step or any higher one, so the output never grows as quality drops. When the source
// already is in the target format and no encoding beats it, the source bytes are returned.
func Compress(data []byte, format Format, quality float64) ([]byte, error) {
	if !format.Raster() {
		return data, nil
	}
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}

	img, srcFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	quality = math.Max(MinQuality, math.Min(MaxQuality, quality))

	var (
		out     []byte
		sameFmt bool
	)
	switch format {
	case FormatJPG:
		sameFmt = srcFormat == "jpeg"
		out, err = compressJPG(img, quality)
	case FormatPNG:
		sameFmt = srcFormat == "png"
		out, err = compressPNG(img, quality)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	if sameFmt && len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

// jpegSteps is the number of quality steps above the lowest one.
const jpegSteps = 20

// jpegStep maps [0, 1] onto [0, jpegSteps].
func jpegStep(q float64) int {
	return int(math.Floor(q*jpegSteps + 1e-9))
}

// jpegQuality maps a step onto the encoder's [1, 100].
func jpegQuality(step int) int {
	return 1 + step*99/jpegSteps
}

func compressJPG(img image.Image, quality float64) ([]byte, error) {
	flat := flatten(img)

	var best []byte
	for step := jpegSteps; step >= jpegStep(quality); step-- {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality(step)}); err != nil {
			return nil, err
		}
		if best == nil || buf.Len() < len(best) {
			best = buf.Bytes()
		}
	}
	return best, nil
}

// pngBits is the number of bits kept per channel: 8 at full quality down to 1 at zero.
func pngBits(q float64) int {
	if q >= 1 {
		return 8
	}
	return 1 + int(math.Round(q*7))
}

// paletteSize is the color count of the quantized candidate at the given bits: 256 at 7 bits
// down to 4 at 1 bit.
func paletteSize(bits int) int {
	return 2 << bits
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

func compressPNG(img image.Image, quality float64) ([]byte, error) {
	src := toNRGBA(img)
	opaque := src.Opaque()

	var best []byte
	for bits := 8; bits >= pngBits(quality); bits-- {
		for _, candidate := range pngCandidates(src, bits, opaque) {
			var buf bytes.Buffer
			if err := pngEncoder.Encode(&buf, candidate); err != nil {
				return nil, err
			}
			if best == nil || buf.Len() < len(best) {
				best = buf.Bytes()
			}
		}
	}
	return best, nil
}

// pngCandidates are the images worth encoding at one step. Go writes paletted PNGs without row
// filters, so the truecolor form is always tried as well. The lossy quantized palette is only
// used for opaque images below full quality.
func pngCandidates(src *image.NRGBA, bits int, opaque bool) []image.Image {
	post := posterize(src, bits)
	candidates := []image.Image{post}
	if p := toPaletted(post); p != nil {
		candidates = append(candidates, p)
	}
	if bits < 8 && opaque {
		if p := quantizePalette(src, paletteSize(bits)); p != nil {
			candidates = append(candidates, p)
		}
	}
	return candidates
}

// flatten draws img over a white background; JPEG has no alpha channel.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(b)
	draw.Draw(n, b, img, b.Min, draw.Src)
	return n
}

// posterize returns a copy of img keeping the given bits per channel. At 8 bits img itself is
// returned.
func posterize(img *image.NRGBA, bits int) *image.NRGBA {
	if bits >= 8 {
		return img
	}

	out := image.NewNRGBA(img.Bounds())
	levels := 1<<bits - 1
	for i, v := range img.Pix {
		l := (int(v)*levels + 127) / 255
		out.Pix[i] = uint8(l * 255 / levels)
	}
	return out
}

// quantizePalette reduces img to at most colors colors with a median cut palette and
// Floyd-Steinberg dithering.
func quantizePalette(img *image.NRGBA, colors int) *image.Paletted {
	q := quantize.MedianCutQuantizer{}
	palette := q.Quantize(make(color.Palette, 0, colors), img)
	if len(palette) == 0 {
		return nil
	}
	// Fixed palette order keeps the encoding stable between calls.
	slices.SortFunc(palette, func(a, b color.Color) int {
		return cmp.Compare(packRGBA(a), packRGBA(b))
	})

	b := img.Bounds()
	p := image.NewPaletted(b, palette)
	draw.FloydSteinberg.Draw(p, b, img, b.Min)
	return p
}

func packRGBA(c color.Color) uint64 {
	r, g, b, a := c.RGBA()
	return uint64(r)<<48 | uint64(g)<<32 | uint64(b)<<16 | uint64(a)
}

// toPaletted converts img without loss when it has at most 256 distinct colors.
func toPaletted(img *image.NRGBA) *image.Paletted {
	index := make(map[color.NRGBA]uint8, 256)
	var palette color.Palette

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if _, ok := index[c]; ok {
				continue
			}
			if len(palette) == 256 {
				return nil
			}
			index[c] = uint8(len(palette))
			palette = append(palette, c)
		}
	}

	p := image.NewPaletted(b, palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p.SetColorIndex(x, y, index[img.NRGBAAt(x, y)])
		}
	}
	return p
}
