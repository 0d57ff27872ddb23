package raster

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
)

// ImageFormat selects the on-disk encoding TurtleOS saves at shutdown.
type ImageFormat byte

const (
	// FormatDefault is PNG if the image library is available, else PGM.
	// In this implementation PNG is always available (stdlib), so
	// FormatDefault behaves like FormatPNG.
	FormatDefault ImageFormat = 0
	FormatPGM     ImageFormat = 1
	FormatPNG     ImageFormat = 2
	FormatJPEG    ImageFormat = 3
)

// Extension returns the file extension this format saves as.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatPGM:
		return "pgm"
	case FormatPNG, FormatDefault:
		return "png"
	case FormatJPEG:
		return "jpg"
	default:
		return "pgm"
	}
}

// Encode writes fb to w in the given format. PGM/PPM are written as ASCII
// ("P2"/"P3") per spec.md §4.6; PNG and JPEG go through the standard
// library's image codecs since channels/bpc match image.Gray/image.RGBA
// directly.
func Encode(w io.Writer, fb *Framebuffer, format ImageFormat, comment string) error {
	switch format {
	case FormatPGM:
		return encodePGM(w, fb, comment)
	case FormatPNG, FormatDefault:
		return png.Encode(w, toGoImage(fb))
	case FormatJPEG:
		return jpeg.Encode(w, toGoImage(fb), nil)
	default:
		return encodePGM(w, fb, comment)
	}
}

func toGoImage(fb *Framebuffer) image.Image {
	if fb.Channels == 3 {
		img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
		for y := 0; y < fb.Height; y++ {
			for x := 0; x < fb.Width; x++ {
				off := y*fb.Stride() + x*fb.Channels
				img.Set(x, y, color.RGBA{
					R: fb.Pix[off], G: fb.Pix[off+1], B: fb.Pix[off+2], A: 255,
				})
			}
		}
		return img
	}
	img := image.NewGray(image.Rect(0, 0, fb.Width, fb.Height))
	copy(img.Pix, fb.Pix)
	return img
}

// encodePGM writes a "P2" (single channel) or "P3" (three channel) ASCII
// image: header "P2\n# <comment>\n<width> <height>\n255\n" followed by one
// row of space-separated decimal samples per line.
func encodePGM(w io.Writer, fb *Framebuffer, comment string) error {
	magic := "P2"
	if fb.Channels == 3 {
		magic = "P3"
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n# %s\n%d %d\n255\n", magic, comment, fb.Width, fb.Height)
	for y := 0; y < fb.Height; y++ {
		row := fb.Pix[y*fb.Stride() : (y+1)*fb.Stride()]
		for i, b := range row {
			if i > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%d", b)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
