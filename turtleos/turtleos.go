// Package turtleos implements the Turtle graphics OS extension: a pixel
// framebuffer, a turtle cursor (position + heading), and the line-drawing
// interrupts spec.md §4.6 describes, layered on top of package osext's
// base console I/O.
package turtleos

import (
	"fmt"
	"math"
	"time"

	"logovm/binfmt"
	"logovm/osext"
	"logovm/raster"
	"logovm/vm"
)

// VersionMajor/Minor is the version this extension implements.
const (
	VersionMajor = 0
	VersionMinor = 1
)

const (
	defaultWidth  = 256
	defaultHeight = 192
)

// TurtleOS is the graphics extension: console I/O inherited from LogoOS,
// plus a framebuffer and turtle cursor driven by SETPX/MOVE/MOVETO/
// GETPOS/CLRSCR, saving an image file on shutdown.
type TurtleOS struct {
	machine *vm.Machine
	osname  string
	fb      *raster.Framebuffer
	format  raster.ImageFormat

	x, y  int
	angle float64 // degrees, turtle-heading convention (spec.md §4.6)

	now func() time.Time
}

// New parses the extension-init blob (osname, major, minor, width, height,
// x, y, angle, imageformat), installs the console interrupts plus
// SETPX/MOVE/MOVETO/GETPOS/CLRSCR/shutdown, and returns the extension.
func New(m *vm.Machine, initBlob []byte) (osext.Extension, error) {
	rec, err := binfmt.NewReader(initBlob).ParseRecord([]binfmt.Field{
		{Name: "osname", Type: binfmt.TypeCString},
		{Name: "major", Type: binfmt.TypeU8},
		{Name: "minor", Type: binfmt.TypeU8},
		{Name: "width", Type: binfmt.TypeU16},
		{Name: "height", Type: binfmt.TypeU16},
		{Name: "x", Type: binfmt.TypeU16},
		{Name: "y", Type: binfmt.TypeU16},
		{Name: "angle", Type: binfmt.TypeU16},
		{Name: "imageformat", Type: binfmt.TypeU8},
	})
	if err != nil {
		return nil, fmt.Errorf("osext: parsing TurtleOS init: %w", osext.ErrInvalidOS)
	}
	osname := rec["osname"].(string)
	if osname != "TurtleOS" && osname != "LogoOS" {
		return nil, fmt.Errorf("osext: unsupported os %q: %w", osname, osext.ErrInvalidOS)
	}
	major, minor := rec["major"].(uint8), rec["minor"].(uint8)
	if major > VersionMajor || (major == VersionMajor && minor > VersionMinor) {
		return nil, fmt.Errorf("osext: requires os version <= %d.%d, got %d.%d: %w",
			VersionMajor, VersionMinor, major, minor, osext.ErrInvalidOS)
	}

	width := int(rec["width"].(uint16))
	height := int(rec["height"].(uint16))
	if width == 0 {
		width = defaultWidth
	}
	if height == 0 {
		height = defaultHeight
	}

	t := &TurtleOS{
		machine: m,
		osname:  osname,
		fb:      raster.New(width, height, 1),
		format:  imageFormatFrom(rec["imageformat"].(uint8)),
		x:       int(rec["x"].(uint16)),
		y:       int(rec["y"].(uint16)),
		angle:   float64(rec["angle"].(uint16)) / 100.0,
		now:     time.Now,
	}

	osext.InstallConsoleInterrupts(m)
	m.SetInterrupt(0, t.shutdown)
	m.SetInterrupt(3, t.setPixel)
	m.SetInterrupt(4, t.move)
	m.SetInterrupt(5, t.moveTo)
	m.SetInterrupt(6, t.getPos)
	m.SetInterrupt(7, t.clearScreen)

	m.SetFlag(vm.FlagPen)
	m.UnsetFlag(vm.FlagDraw)

	return t, nil
}

// Name returns the registered osname this instance was constructed with.
func (t *TurtleOS) Name() string { return t.osname }

func imageFormatFrom(code uint8) raster.ImageFormat {
	switch code {
	case 1:
		return raster.FormatPGM
	case 2:
		return raster.FormatPNG
	case 3:
		return raster.FormatJPEG
	default:
		return raster.FormatDefault
	}
}

// setPixel implements interrupt 3 (SETPX): pop y, pop x; if PEN is set and
// (x,y) is in bounds, paint the pixel and set DRAW.
func (t *TurtleOS) setPixel(m *vm.Machine) error {
	yv, err := m.Memory().Pop()
	if err != nil {
		return err
	}
	xv, err := m.Memory().Pop()
	if err != nil {
		return err
	}
	if yv.Kind() != vm.KindInt || xv.Kind() != vm.KindInt {
		return vm.ErrTypeMismatch
	}
	if !m.IsFlagSet(vm.FlagPen) {
		return nil
	}
	if t.fb.SetPixel(int(xv.Int64()), int(yv.Int64()), 255) {
		m.SetFlag(vm.FlagDraw)
	}
	return nil
}

// move implements interrupt 4 (MOVE): pop angle (degrees), pop length;
// compute the new position via the turtle-heading convention and draw a
// line from the old position if PEN is set.
func (t *TurtleOS) move(m *vm.Machine) error {
	angleV, err := m.Memory().Pop()
	if err != nil {
		return err
	}
	lengthV, err := m.Memory().Pop()
	if err != nil {
		return err
	}
	if !angleV.IsNumeric() || !lengthV.IsNumeric() {
		return vm.ErrTypeMismatch
	}
	angle := angleV.AsFloat64()
	length := lengthV.AsFloat64()

	// The stored heading is the flipped angle, not the raw input: GETPOS
	// flips it back via the same (360-angle)%360 transform, so two flips
	// round-trip to the original input angle.
	heading := 360.0 - math.Mod(angle, 360.0)
	theta := heading * math.Pi / 180.0
	x0, y0 := t.x, t.y
	x1 := x0 + int((length-1)*math.Cos(theta))
	y1 := y0 + int((length-1)*math.Sin(theta))

	t.x, t.y, t.angle = x1, y1, heading
	return t.drawIfPenSet(m, x0, y0, x1, y1)
}

// moveTo implements interrupt 5 (MOVETO): pop y, pop x; update the turtle
// position directly (Cartesian, not polar) and draw a line if PEN is set.
func (t *TurtleOS) moveTo(m *vm.Machine) error {
	yv, err := m.Memory().Pop()
	if err != nil {
		return err
	}
	xv, err := m.Memory().Pop()
	if err != nil {
		return err
	}
	if yv.Kind() != vm.KindInt || xv.Kind() != vm.KindInt {
		return vm.ErrTypeMismatch
	}
	x0, y0 := t.x, t.y
	x1, y1 := int(xv.Int64()), int(yv.Int64())
	t.x, t.y = x1, y1
	return t.drawIfPenSet(m, x0, y0, x1, y1)
}

func (t *TurtleOS) drawIfPenSet(m *vm.Machine, x0, y0, x1, y1 int) error {
	if !m.IsFlagSet(vm.FlagPen) {
		return nil
	}
	raster.Line(x0, y0, x1, y1, func(x, y int) {
		if t.fb.SetPixel(x, y, 255) {
			m.SetFlag(vm.FlagDraw)
		}
	})
	return nil
}

// getPos implements interrupt 6 (GETPOS): push x, push y, push the
// turtle's heading expressed in the (360-angle)%360 convention.
func (t *TurtleOS) getPos(m *vm.Machine) error {
	if err := m.Memory().Push(vm.Int(int64(t.x))); err != nil {
		return err
	}
	if err := m.Memory().Push(vm.Int(int64(t.y))); err != nil {
		return err
	}
	heading := math.Mod(360.0-t.angle, 360.0)
	return m.Memory().Push(vm.Float(heading))
}

// clearScreen implements interrupt 7 (CLRSCR): zero the framebuffer and
// clear DRAW.
func (t *TurtleOS) clearScreen(m *vm.Machine) error {
	t.fb.Clear()
	m.UnsetFlag(vm.FlagDraw)
	return nil
}

// shutdown implements interrupt 0: if DRAW is set, save the framebuffer as
// an image file named with the current timestamp in the working directory.
func (t *TurtleOS) shutdown(m *vm.Machine) error {
	if !m.IsFlagSet(vm.FlagDraw) {
		return nil
	}
	name := t.now().Format("20060102-150405") + "." + t.format.Extension()
	f, err := createImageFile(name)
	if err != nil {
		return fmt.Errorf("osext: saving image: %w", osext.ErrExtensionError)
	}
	defer f.Close()
	return raster.Encode(f, t.fb, t.format, name+" generated with LogoVM/TurtleOS")
}
