package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/autodocx/internal/errors"
)

func TestCapture_FailFirstWins(t *testing.T) {
	c := &Capture{}
	require.True(t, c.Succeeded())

	c.Fail(errors.NewExecutionTimeout(2*time.Second), -1)
	c.Fail(errors.NewExecutionError(1), 1)

	require.False(t, c.Succeeded())
	assert.Equal(t, errors.ErrExecutionTimeout, c.Failure.Kind)
	assert.Equal(t, -1, c.Failure.ExitCode)
}

func TestCapture_AppendPreservesOrder(t *testing.T) {
	c := &Capture{}
	c.Append(Markdown{Content: "# Intro"})
	c.Append(Text{Content: "a"}, Image{Data: []byte{1}, Format: FormatPNG})
	c.Append(Text{Content: "b"})

	require.Len(t, c.Items, 4)
	assert.IsType(t, Markdown{}, c.Items[0])
	assert.IsType(t, Text{}, c.Items[1])
	assert.IsType(t, Image{}, c.Items[2])
	assert.Equal(t, "a\nb", c.Text())
}

func TestFormatFromExt(t *testing.T) {
	tests := []struct {
		ext  string
		want ImageFormat
		ok   bool
	}{
		{".png", FormatPNG, true},
		{"PNG", FormatPNG, true},
		{".jpg", FormatJPEG, true},
		{"jpeg", FormatJPEG, true},
		{".gif", FormatGIF, true},
		{".svg", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, ok := FormatFromExt(tt.ext)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
