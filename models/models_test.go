package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidChecksum(t *testing.T) {
	valid := []string{"abc123", "deadbeef", "D41D8CD98F00B204E9800998ECF8427E", "0"}
	for _, s := range valid {
		assert.True(t, ValidChecksum(s), s)
	}

	invalid := []string{"", "../admin/delete?x=1", "abc#1", "abc/1", "abc 1", "xyz", "é", strings.Repeat("a", 33)}
	for _, s := range invalid {
		assert.False(t, ValidChecksum(s), s)
	}
}

func TestBeatmapValidate(t *testing.T) {
	assert.NoError(t, (&Beatmap{MD5: "d41d8cd98f00b204e9800998ecf8427e"}).Validate())
	assert.Error(t, (&Beatmap{Title: "no checksum"}).Validate())
	assert.Error(t, (&Beatmap{MD5: "abc?x=1"}).Validate())
}
