//go:build linux

package sink

import (
	"bytes"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// V4L2 constants from linux/videodev2.h.
const (
	v4l2BufTypeVideoOutput = 2
	v4l2FieldNone          = 1
	v4l2ColorspaceSRGB     = 8

	iocWrite = 1
	iocRead  = 2
)

var pixFmtRGB3 = fourcc('R', 'G', 'B', '3')

type v4l2Capability struct {
	Driver       [16]byte
	Card         [32]byte
	BusInfo      [32]byte
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
	Reserved     [3]uint32
}

type v4l2PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YcbcrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

// v4l2FormatUnion mirrors the 200-byte fmt union, which the kernel aligns to a
// pointer because of struct v4l2_window.
type v4l2FormatUnion struct {
	_   [0]uintptr
	Pix v4l2PixFormat
	_   [200 - unsafe.Sizeof(v4l2PixFormat{})]byte
}

type v4l2Format struct {
	Type uint32
	Fmt  v4l2FormatUnion
}

var (
	vidiocQueryCap = ioc(iocRead, 'V', 0, unsafe.Sizeof(v4l2Capability{}))
	vidiocSFmt     = ioc(iocRead|iocWrite, 'V', 5, unsafe.Sizeof(v4l2Format{}))
)

// Open opens a v4l2loopback output device, checks it answers VIDIOC_QUERYCAP and
// sets the RGB3 output format. A failed open or query is an error; a rejected
// format is kept on the Writer (see FormatError) and writing proceeds.
func Open(path string, format Format) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}
	fd := f.Fd()

	var caps v4l2Capability
	if err := ioctl(fd, vidiocQueryCap, unsafe.Pointer(&caps)); err != nil {
		f.Close()
		return nil, fmt.Errorf("error querying caps on %s: %w", path, err)
	}
	capability := Capability{
		Driver: cString(caps.Driver[:]),
		Card:   cString(caps.Card[:]),
		Bus:    cString(caps.BusInfo[:]),
	}

	var vf v4l2Format
	vf.Type = v4l2BufTypeVideoOutput
	vf.Fmt.Pix = v4l2PixFormat{
		Width:        uint32(format.Width),
		Height:       uint32(format.Height),
		PixelFormat:  pixFmtRGB3,
		Field:        v4l2FieldNone,
		BytesPerLine: uint32(format.BytesPerLine()),
		SizeImage:    uint32(format.SizeImage()),
		Colorspace:   v4l2ColorspaceSRGB,
	}
	w := newWriter(path, format, f)
	w.caps = capability
	if err := ioctl(fd, vidiocSFmt, unsafe.Pointer(&vf)); err != nil {
		w.formatErr = fmt.Errorf("VIDIOC_S_FMT on %s: %w", path, err)
	}
	return w, nil
}

func ioctl(fd, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
