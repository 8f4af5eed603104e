// Package capture defines the ordered record of everything a run produced.
package capture

import (
	"strings"

	"github.com/hpungsan/autodocx/internal/errors"
)

// Item is one unit of captured output. The set of implementations is closed:
// Text, Image and Markdown.
type Item interface {
	isItem()
}

// Text is console output (stdout and stderr interleaved).
type Text struct {
	Content string
}

// ImageFormat is the encoding of an Image item.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
	FormatGIF  ImageFormat = "gif"
)

// Image is an image produced during execution, held in memory.
type Image struct {
	Data   []byte
	Format ImageFormat
}

// Markdown is a notebook markdown cell, carried verbatim.
type Markdown struct {
	Content string
}

func (Text) isItem()     {}
func (Image) isItem()    {}
func (Markdown) isItem() {}

// Failure describes why a run did not complete successfully.
type Failure struct {
	Kind     errors.ErrorCode // ErrExecutionTimeout or ErrExecutionError
	Message  string
	ExitCode int
}

// Capture is the ordered output of one run. Items are in emission order and
// are never reordered downstream.
type Capture struct {
	RunID   string // identifies the run that produced the capture, if any
	Items   []Item
	Failure *Failure
}

// Succeeded reports whether the run completed without failure.
func (c *Capture) Succeeded() bool {
	return c.Failure == nil
}

// Append adds items in order, merging nothing.
func (c *Capture) Append(items ...Item) {
	c.Items = append(c.Items, items...)
}

// Fail marks the capture as failed. The first failure wins.
func (c *Capture) Fail(err *errors.DocxError, exitCode int) {
	if c.Failure != nil || err == nil {
		return
	}
	c.Failure = &Failure{
		Kind:     err.Code,
		Message:  err.Message,
		ExitCode: exitCode,
	}
}

// Text returns the concatenated content of all Text items, one per line.
// Useful for summaries and tests.
func (c *Capture) Text() string {
	var parts []string
	for _, it := range c.Items {
		if t, ok := it.(Text); ok {
			parts = append(parts, t.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// FormatFromExt maps a file extension (with or without the dot) to a format.
func FormatFromExt(ext string) (ImageFormat, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return FormatPNG, true
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "gif":
		return FormatGIF, true
	}
	return "", false
}
