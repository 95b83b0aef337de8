package platform

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func NewID() string {
	return uuid.New().String()
}

// ArchiveFileName builds the persisted archive name for a backup job. The
// timestamp component makes re-dispatch of the same job id collision-free.
func ArchiveFileName(jobID string, now time.Time) string {
	return fmt.Sprintf("backup_%s_%d.zip", jobID, now.UnixMilli())
}
