//go:build !unix

package storage

import "strings"

func IsCrossDevice(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "cross-device") || strings.Contains(message, "different disk drive")
}
