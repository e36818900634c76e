package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentDefaults(t *testing.T) {
	info := Current("chirp")
	assert.Equal(t, "chirp", info.Service)
	assert.Equal(t, DevelopmentVersion, info.Version)
	assert.Equal(t, Unknown, info.Commit)
}

func TestCurrentNormalizesEmptyService(t *testing.T) {
	info := Current("  ")
	assert.Equal(t, Unknown, info.Service)
}

func TestString(t *testing.T) {
	info := Info{Service: "chirp", Version: "v1.2.3", Commit: "abc123", BuildTime: "2024-06-01T12:00:00Z"}
	assert.Equal(t, "chirp@v1.2.3 (commit=abc123, build_time=2024-06-01T12:00:00Z)", info.String())
}
