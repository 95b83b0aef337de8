package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.Len(t, id, 36)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestArchiveFileName(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	name := ArchiveFileName("abc-123", at)
	assert.Equal(t, "backup_abc-123_1700000000000.zip", name)

	// Different instants for the same job never collide.
	other := ArchiveFileName("abc-123", at.Add(time.Millisecond))
	assert.NotEqual(t, name, other)
}
