package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolumesReportsMountPoints(t *testing.T) {
	t.Parallel()

	volumes, err := Volumes(t.Context())
	if err != nil {
		t.Skipf("partitions unavailable: %v", err)
	}

	for _, volume := range volumes {
		assert.NotEmpty(t, volume.MountPoint)
		assert.LessOrEqual(t, volume.Free, volume.Total)
	}
}
