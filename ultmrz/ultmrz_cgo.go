//go:build ultimatemrz
// +build ultimatemrz

package ultmrz

/*
#cgo CXXFLAGS: -std=c++11
#cgo LDFLAGS: -lultimate_mrz-sdk
#include <stdlib.h>
#include "ultmrz_bridge.h"
*/
import "C"

import (
	"unsafe"
)

const Available = true

func toResult(r C.ultmrz_result) Result {
	defer C.ultmrz_result_free(&r)
	res := Result{
		Code:     int(r.code),
		NumZones: int(r.num_zones),
	}
	if r.phrase != nil {
		res.Phrase = C.GoString(r.phrase)
	}
	if r.json != nil {
		res.JSON = C.GoString(r.json)
	}
	return res
}

// Init initializes the engine with a JSON configuration. Must be called first.
func Init(jsonConfig string) Result {
	cfg := C.CString(jsonConfig)
	defer C.free(unsafe.Pointer(cfg))
	return toResult(C.ultmrz_init(cfg))
}

func DeInit() Result {
	return toResult(C.ultmrz_deinit())
}

// Process runs detection and recognition on a packed pixel buffer.
// The buffer is only read for the duration of the call.
func Process(imageType ImageType, data []byte, width, height, stride, exifOrientation int) Result {
	if len(data) == 0 {
		return Result{Code: 1, Phrase: "empty image buffer"}
	}
	return toResult(C.ultmrz_process(
		C.int(imageType),
		unsafe.Pointer(&data[0]),
		C.size_t(width),
		C.size_t(height),
		C.size_t(stride),
		C.int(exifOrientation),
	))
}

// ExifOrientation reads the orientation from JPEG meta-data.
func ExifOrientation(jpegMetaData []byte) int {
	if len(jpegMetaData) == 0 {
		return 1
	}
	return int(C.ultmrz_exif_orientation(unsafe.Pointer(&jpegMetaData[0]), C.size_t(len(jpegMetaData))))
}

// RequestRuntimeLicenseKey builds the runtime key of this device. Init must be called before.
func RequestRuntimeLicenseKey(raw bool) Result {
	r := C.int(0)
	if raw {
		r = 1
	}
	return toResult(C.ultmrz_request_runtime_license_key(r))
}
