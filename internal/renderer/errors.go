package renderer

import "errors"

var (
	// ErrUnsupportedFormat is returned when a bitmap's pixel format has no GPU
	// texture equivalent
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrTextureTooLarge is returned when an image exceeds the device's maximum
	// 2D texture dimension
	ErrTextureTooLarge = errors.New("texture too large for device")

	// ErrDeviceLost marks failures that require recreating the device and
	// every GPU object made from it
	ErrDeviceLost = errors.New("gpu device lost")
)
