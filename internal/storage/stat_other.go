//go:build !linux && !darwin && !windows

package storage

import "io/fs"

func statTimes(_ string, info fs.FileInfo) fileTimes {
	return sysTimes(info)
}

func sysTimes(fs.FileInfo) fileTimes {
	return fileTimes{}
}
