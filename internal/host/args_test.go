package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsStartupURLs(t *testing.T) {
	a := NewArgs([]string{
		"--verbose",
		"myapp://open?id=1",
		`C:\Users\me\file.txt`,
		"./relative",
		"https://example.com",
		"myapp://open?id=2",
	})

	assert.Equal(t, []string{"myapp://open?id=1", "https://example.com", "myapp://open?id=2"}, a.StartupURLs())
}

func TestArgsEmpty(t *testing.T) {
	assert.Empty(t, NewArgs(nil).StartupURLs())
}
