// Package raster implements the pixel framebuffer TurtleOS draws into, its
// Bresenham line rasterizer, and the PGM/PPM/PNG/JPEG encoders used to save
// an image at shutdown.
package raster

// Framebuffer is a flat, zero-initialized raster: channels is 1 (grayscale)
// or 3 (RGB), one byte per channel, row-major with stride = width*channels.
type Framebuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// New returns a zero-filled Framebuffer. channels must be 1 or 3; any other
// value is coerced to 1.
func New(width, height, channels int) *Framebuffer {
	if channels != 1 && channels != 3 {
		channels = 1
	}
	return &Framebuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, width*channels*height),
	}
}

// Stride is the byte length of one row.
func (f *Framebuffer) Stride() int { return f.Width * f.Channels }

// InBounds reports whether (x,y) addresses a pixel.
func (f *Framebuffer) InBounds(x, y int) bool {
	return x >= 0 && x < f.Width && y >= 0 && y < f.Height
}

// SetPixel writes the single value into every channel of (x,y), so a
// 3-channel framebuffer receives it broadcast across R, G and B; there is no
// multi-channel input and no averaging path. Returns false if (x,y) is out
// of bounds (caller should not set DRAW in that case).
func (f *Framebuffer) SetPixel(x, y int, value byte) bool {
	if !f.InBounds(x, y) {
		return false
	}
	off := y*f.Stride() + x*f.Channels
	for c := 0; c < f.Channels; c++ {
		f.Pix[off+c] = value
	}
	return true
}

// At reads the single-channel-averaged value of (x,y) for rendering and
// testing purposes.
func (f *Framebuffer) At(x, y int) byte {
	if !f.InBounds(x, y) {
		return 0
	}
	off := y*f.Stride() + x*f.Channels
	if f.Channels == 1 {
		return f.Pix[off]
	}
	var sum int
	for c := 0; c < f.Channels; c++ {
		sum += int(f.Pix[off+c])
	}
	return byte(sum / f.Channels)
}

// Clear zeros every pixel.
func (f *Framebuffer) Clear() {
	for i := range f.Pix {
		f.Pix[i] = 0
	}
}
