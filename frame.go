package mrzworker

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"github.com/xf0e/open-mrz/ultmrz"
)

// Frame is a packed pixel buffer handed to the engines by reference.
type Frame struct {
	Type        ultmrz.ImageType
	Pix         []byte
	Width       int
	Height      int
	Stride      int // in samples; 0 means tightly packed
	Orientation int // EXIF orientation, 1..8

	pooled   bool
	released bool
	mu       sync.Mutex
}

// BytesPerPixel returns 0 for image types that are not packed.
func BytesPerPixel(typ ultmrz.ImageType) int {
	switch typ {
	case ultmrz.ImageTypeY:
		return 1
	case ultmrz.ImageTypeRGB24, ultmrz.ImageTypeBGR24:
		return 3
	case ultmrz.ImageTypeRGBA32, ultmrz.ImageTypeBGRA32:
		return 4
	}
	return 0
}

// ImageTypeForChannels maps 1, 3 and 4 bytes per pixel to Y, RGB24 and RGBA32.
func ImageTypeForChannels(channels int) (ultmrz.ImageType, error) {
	switch channels {
	case 1:
		return ultmrz.ImageTypeY, nil
	case 3:
		return ultmrz.ImageTypeRGB24, nil
	case 4:
		return ultmrz.ImageTypeRGBA32, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedPixelDepth, "%d bytes per pixel", channels)
}

// NewFrame wraps pix without copying it.
func NewFrame(typ ultmrz.ImageType, pix []byte, width, height, stride, orientation int) (*Frame, error) {
	bpp := BytesPerPixel(typ)
	if bpp == 0 {
		return nil, errors.Wrapf(ErrUnsupportedPixelDepth, "image type %s", typ)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid frame size %dx%d", width, height)
	}
	if stride != 0 && stride < width {
		return nil, errors.Errorf("stride %d smaller than width %d", stride, width)
	}
	rowSamples := width
	if stride != 0 {
		rowSamples = stride
	}
	// the last row does not need the stride padding
	if need := (rowSamples*(height-1) + width) * bpp; len(pix) < need {
		return nil, errors.Errorf("buffer too small: %d < %d", len(pix), need)
	}
	if orientation < 1 || orientation > 8 {
		orientation = 1
	}
	return &Frame{
		Type:        typ,
		Pix:         pix,
		Width:       width,
		Height:      height,
		Stride:      stride,
		Orientation: orientation,
	}, nil
}

var framePool = sync.Pool{
	New: func() interface{} {
		return new([]byte)
	},
}

func acquireBuffer(size int) []byte {
	bufPtr := framePool.Get().(*[]byte)
	if cap(*bufPtr) < size {
		return make([]byte, size)
	}
	return (*bufPtr)[:size]
}

func releaseBuffer(buf []byte) {
	buf = buf[:0]
	framePool.Put(&buf)
}

// Release hands a pooled buffer back. Safe to call more than once.
func (f *Frame) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return
	}
	f.released = true
	if f.pooled {
		releaseBuffer(f.Pix)
	}
	f.Pix = nil
}

func (f *Frame) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *Frame) rowStrideBytes() int {
	bpp := BytesPerPixel(f.Type)
	if f.Stride != 0 {
		return f.Stride * bpp
	}
	return f.Width * bpp
}

// Image returns a copy of the frame as a Go image, without applying the orientation.
func (f *Frame) Image() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return nil, errors.New("frame already released")
	}

	rect := image.Rect(0, 0, f.Width, f.Height)
	rowBytes := f.rowStrideBytes()
	switch f.Type {
	case ultmrz.ImageTypeY:
		img := image.NewGray(rect)
		for y := 0; y < f.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+f.Width], f.Pix[y*rowBytes:])
		}
		return img, nil
	default:
		bpp := BytesPerPixel(f.Type)
		img := image.NewNRGBA(rect)
		for y := 0; y < f.Height; y++ {
			src := f.Pix[y*rowBytes:]
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < f.Width; x++ {
				s := src[x*bpp : x*bpp+bpp]
				d := dst[x*4 : x*4+4]
				switch f.Type {
				case ultmrz.ImageTypeRGB24:
					d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 0xff
				case ultmrz.ImageTypeBGR24:
					d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 0xff
				case ultmrz.ImageTypeRGBA32:
					d[0], d[1], d[2], d[3] = s[0], s[1], s[2], s[3]
				case ultmrz.ImageTypeBGRA32:
					d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
				}
			}
		}
		return img, nil
	}
}
