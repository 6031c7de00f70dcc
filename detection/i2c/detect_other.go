//go:build !linux

package i2c

import (
	"context"

	"github.com/ZaparooProject/go-twi/detection"
)

// detectLinux is a stub for non-Linux platforms
func detectLinux(context.Context, *detection.Options) ([]detection.Info, error) {
	return nil, detection.ErrUnsupportedPlatform
}
