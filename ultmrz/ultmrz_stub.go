//go:build !ultimatemrz
// +build !ultimatemrz

package ultmrz

// Available reports whether the vendor SDK is linked into the binary.
const Available = false

func Init(jsonConfig string) Result {
	return notAvailable()
}

func DeInit() Result {
	return notAvailable()
}

func Process(imageType ImageType, data []byte, width, height, stride, exifOrientation int) Result {
	return notAvailable()
}

// ExifOrientation returns 1 when the SDK is not available.
func ExifOrientation(jpegMetaData []byte) int {
	return 1
}

func RequestRuntimeLicenseKey(raw bool) Result {
	return notAvailable()
}
