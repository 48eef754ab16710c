//go:build darwin

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
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileTimes{}
	}
	return fileTimes{
		accessed: time.Unix(st.Atimespec.Unix()),
		changed:  time.Unix(st.Ctimespec.Unix()),
		created:  time.Unix(st.Birthtimespec.Unix()),
	}
}
