//go:build linux

package i2c

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/ZaparooProject/go-twi/detection"
)

// i2c-dev ioctl requests and functionality bits, from linux/i2c-dev.h and
// linux/i2c.h.
const (
	ioctlSlave = 0x0703
	ioctlFuncs = 0x0705

	funcI2C = 0x00000001
)

// detectLinux lists /dev/i2c-* adapters
func detectLinux(ctx context.Context, opts *detection.Options) ([]detection.Info, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C adapters: %w", err)
	}
	sort.Strings(matches)

	infos := make([]detection.Info, 0, len(matches))
	for _, path := range matches {
		if ctx.Err() != nil {
			return infos, detection.ErrDetectionTimeout
		}
		if detection.IsPathIgnored(path, opts.IgnorePaths) {
			continue
		}

		var n int
		if _, err := fmt.Sscanf(filepath.Base(path), "i2c-%d", &n); err != nil {
			continue
		}

		funcs, err := adapterFuncs(path)
		if err != nil || funcs&funcI2C == 0 {
			continue
		}

		var addrs []uint16
		if opts.Mode == detection.Active {
			addrs = scanAdapter(ctx, path)
		}
		infos = append(infos, busInfo(path, n, funcs, addrs))
	}

	if len(infos) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return infos, nil
}

// adapterFuncs returns the I2C_FUNCS bitmap of the adapter at path.
func adapterFuncs(path string) (uint64, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = unix.Close(fd) }()

	// the kernel stores an unsigned long, the size of a Go int on Linux
	funcs, err := unix.IoctlGetInt(fd, ioctlFuncs)
	if err != nil {
		return 0, fmt.Errorf("I2C_FUNCS on %s: %w", path, err)
	}
	return uint64(uint(funcs)), nil
}

// scanAdapter reads one byte from every non-reserved address and returns
// those that answered.
func scanAdapter(ctx context.Context, path string) []uint16 {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil
	}
	defer func() { _ = unix.Close(fd) }()

	var found []uint16
	buf := make([]byte, 1)
	for addr := 0x08; addr <= 0x77; addr++ {
		if ctx.Err() != nil {
			break
		}
		if err := unix.IoctlSetInt(fd, ioctlSlave, addr); err != nil {
			continue
		}
		if _, err := unix.Read(fd, buf); err == nil {
			found = append(found, uint16(addr))
		}
	}
	return found
}
