//go:build windows

package storage

import (
	"io/fs"
	"syscall"
	"time"
)

func statTimes(_ string, info fs.FileInfo) fileTimes {
	return sysTimes(info)
}

func sysTimes(info fs.FileInfo) fileTimes {
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return fileTimes{}
	}
	return fileTimes{
		accessed: time.Unix(0, attrs.LastAccessTime.Nanoseconds()),
		created:  time.Unix(0, attrs.CreationTime.Nanoseconds()),
	}
}
