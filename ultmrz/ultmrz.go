// Package ultmrz binds the process-global ultimateMRZ SDK engine.
//
// The binding needs the vendor headers and shared library and is only
// compiled with the "ultimatemrz" build tag. Without it every call reports
// that the SDK is not available.
package ultmrz

// ImageType mirrors ULTMRZ_SDK_IMAGE_TYPE.
type ImageType int

const (
	ImageTypeRGB24 = ImageType(iota)
	ImageTypeRGBA32
	ImageTypeBGRA32
	ImageTypeNV12
	ImageTypeNV21
	ImageTypeYUV420P
	ImageTypeYVU420P
	ImageTypeYUV422P
	ImageTypeYUV444P
	ImageTypeY
	ImageTypeBGR24
)

func (t ImageType) String() string {
	switch t {
	case ImageTypeRGB24:
		return "RGB24"
	case ImageTypeRGBA32:
		return "RGBA32"
	case ImageTypeBGRA32:
		return "BGRA32"
	case ImageTypeNV12:
		return "NV12"
	case ImageTypeNV21:
		return "NV21"
	case ImageTypeYUV420P:
		return "YUV420P"
	case ImageTypeYVU420P:
		return "YVU420P"
	case ImageTypeYUV422P:
		return "YUV422P"
	case ImageTypeYUV444P:
		return "YUV444P"
	case ImageTypeY:
		return "Y"
	case ImageTypeBGR24:
		return "BGR24"
	}
	return "UNKNOWN"
}

// Result is a copy of UltMrzSdkResult. Code 0 means success.
type Result struct {
	Code     int
	Phrase   string
	JSON     string
	NumZones int
}

func (r Result) IsOK() bool {
	return r.Code == 0
}

// CodeNotAvailable is returned by every call when the binding is not compiled in.
const CodeNotAvailable = -1

const phraseNotAvailable = "ultimateMRZ SDK binding not compiled in"

func notAvailable() Result {
	return Result{Code: CodeNotAvailable, Phrase: phraseNotAvailable}
}
