package tzraster

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestNormalizeEtcOffsets(t *testing.T) {
	assert.Equal(t, "UTC+05:00", Normalize("Etc/GMT+5"))
	assert.Equal(t, "UTC-12:00", Normalize("Etc/GMT-12"))
	assert.Equal(t, "UTC+10:00", Normalize("Etc/GMT+10"))
	assert.Equal(t, "UTC-01:00", Normalize("Etc/GMT-1"))
}

func TestNormalizeExactMatches(t *testing.T) {
	assert.Equal(t, "UTC", Normalize("Etc/UTC"))
	assert.Equal(t, "UTC+00:00", Normalize("Etc/GMT"))
}

func TestNormalizePassthrough(t *testing.T) {
	assert.Equal(t, "America/Toronto", Normalize("America/Toronto"))
	assert.Equal(t, "UTC", Normalize("UTC"))
	assert.Equal(t, "Etc/GMT+123", Normalize("Etc/GMT+123"))
	assert.Equal(t, "Etc/GMT0", Normalize("Etc/GMT0"))
	assert.Equal(t, "", Normalize(""))
}

func TestNewTimezones(t *testing.T) {
	tzs := NewTimezones([]string{"Etc/GMT-3", "Europe/Berlin"})
	assert.Equal(t, 2, len(tzs))
	assert.Equal(t, Timezone{"Etc/GMT-3", "UTC-03:00"}, tzs[0])
	assert.Equal(t, Timezone{"Europe/Berlin", "Europe/Berlin"}, tzs[1])
}
