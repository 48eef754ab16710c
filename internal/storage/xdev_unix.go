//go:build unix

package storage

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsCrossDevice reports whether err is the EXDEV failure of rename(2) across volumes.
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
