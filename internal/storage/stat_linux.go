//go:build linux

package storage

import (
	"io/fs"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func statTimes(path string, info fs.FileInfo) fileTimes {
	var stx unix.Statx_t
	mask := unix.STATX_ATIME | unix.STATX_CTIME | unix.STATX_BTIME
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, mask, &stx); err != nil {
		return sysTimes(info)
	}

	times := fileTimes{
		accessed: statxTime(stx.Atime),
		changed:  statxTime(stx.Ctime),
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		times.created = statxTime(stx.Btime)
	}
	return times
}

func sysTimes(info fs.FileInfo) fileTimes {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileTimes{}
	}
	return fileTimes{
		accessed: time.Unix(st.Atim.Unix()),
		changed:  time.Unix(st.Ctim.Unix()),
	}
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}
