package mrzworker

import (
	"bytes"
	"image"
	"image/color"
	"os"

	// jpeg, png, gif, bmp and tiff are registered by imaging
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/xf0e/open-mrz/ultmrz"
)

// LoadImage reads and decodes an image file into a pooled frame.
// The caller must Release the frame.
func LoadImage(path string, transpose bool) (*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrImageNotFound, path)
		}
		return nil, errors.Wrap(err, "could not read image")
	}
	return DecodeFrame(data, transpose)
}

// DecodeFrame decodes image bytes. With transpose set the pixels are rotated
// upright and the frame orientation is 1, otherwise the EXIF orientation is
// kept for the engine.
func DecodeFrame(data []byte, transpose bool) (*Frame, error) {
	fileType := detectFileType(data)
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %s image", fileType)
	}

	typ, err := imageTypeOf(img)
	if err != nil {
		return nil, err
	}

	orientation := ExifOrientation(data)
	if transpose && orientation != 1 {
		img = ApplyOrientation(img, orientation)
		orientation = 1
	}

	b := img.Bounds()
	buf := acquireBuffer(b.Dx() * b.Dy() * BytesPerPixel(typ))
	packImage(img, typ, buf)

	log.Debug().Str("component", "MRZ_IMAGE").
		Str("file_type", fileType).
		Str("image_type", typ.String()).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Int("orientation", orientation).
		Msg("image decoded")

	frame, err := NewFrame(typ, buf, b.Dx(), b.Dy(), 0, orientation)
	if err != nil {
		releaseBuffer(buf)
		return nil, err
	}
	frame.pooled = true
	return frame, nil
}

// imageTypeOf maps the decoded pixel layout to 1, 3 or 4 bytes per pixel.
func imageTypeOf(img image.Image) (ultmrz.ImageType, error) {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return ImageTypeForChannels(1)
	case *image.YCbCr, *image.CMYK:
		return ImageTypeForChannels(3)
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted, *image.NYCbCrA:
		return ImageTypeForChannels(4)
	}
	return 0, errors.Wrapf(ErrUnsupportedPixelDepth, "pixel layout %T", img)
}

func packImage(img image.Image, typ ultmrz.ImageType, buf []byte) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if typ == ultmrz.ImageTypeY {
		if gray, ok := img.(*image.Gray); ok {
			for y := 0; y < h; y++ {
				off := gray.PixOffset(b.Min.X, b.Min.Y+y)
				copy(buf[y*w:(y+1)*w], gray.Pix[off:off+w])
			}
			return
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				buf[y*w+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
			}
		}
		return
	}

	nrgba := imaging.Clone(img)
	if typ == ultmrz.ImageTypeRGBA32 {
		for y := 0; y < h; y++ {
			copy(buf[y*w*4:(y+1)*w*4], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+w*4])
		}
		return
	}
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			copy(buf[(y*w+x)*3:(y*w+x)*3+3], row[x*4:x*4+3])
		}
	}
}

// ExifOrientation returns the EXIF orientation of JPEG/TIFF data, 1 when absent or invalid.
// The SDK's own meta-data reader is asked when goexif can not decode the data.
func ExifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return clampOrientation(ultmrz.ExifOrientation(data))
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return clampOrientation(orientation)
}

func clampOrientation(orientation int) int {
	if orientation < 1 || orientation > 8 {
		return 1
	}
	return orientation
}
