package storage

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shirou/gopsutil/v4/disk"

	"go-fileops/internal/model"
	"go-fileops/pkg/fserr"
)

// Volumes lists the mounted physical volumes with their capacity. Volumes whose
// usage cannot be read are still listed with zero sizes.
func Volumes(ctx context.Context) ([]model.Volume, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fserr.Wrap(fserr.IoError, "volumes", "", err)
	}

	volumes := make([]model.Volume, 0, len(partitions))
	for _, partition := range partitions {
		volume := model.Volume{
			MountPoint: partition.Mountpoint,
			Device:     partition.Device,
			FSType:     partition.Fstype,
			ReadOnly:   slices.Contains(partition.Opts, "ro"),
		}

		usage, usageErr := disk.UsageWithContext(ctx, partition.Mountpoint)
		if usageErr != nil {
			slog.Debug("volumes: usage unavailable", "mount_point", partition.Mountpoint, "error", usageErr)
		} else {
			volume.Total = usage.Total
			volume.Free = usage.Free
			volume.Used = usage.Used
			volume.UsedPct = usage.UsedPercent
		}

		volumes = append(volumes, volume)
	}

	return volumes, nil
}
