package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessagesGoToTheRightStream(t *testing.T) {
	var out, errOut bytes.Buffer
	u := New(&out, &errOut, ColorNever, false)

	u.Infof("found %d offers\n", 3)
	u.Successf("saved")
	u.Warnf("blocked")
	u.Errorf("boom")

	assert.Equal(t, "found 3 offers\nsaved\n", out.String())
	assert.Equal(t, "blocked\nboom\n", errOut.String())
}

func TestColorDisabledByFlag(t *testing.T) {
	var out bytes.Buffer
	u := New(&out, &out, ColorAlways, true)
	assert.False(t, u.ColorEnabled)
}

func TestNormalizeColorMode(t *testing.T) {
	assert.Equal(t, ColorAlways, NormalizeColorMode(" ALWAYS "))
	assert.Equal(t, ColorNever, NormalizeColorMode("never"))
	assert.Equal(t, ColorAuto, NormalizeColorMode("sometimes"))
}
