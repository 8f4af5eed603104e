package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/autodocx/internal/errors"
)

// ValidateOutputPath checks a document path before anything is executed:
// 1. Extension (.docx required, case-insensitive)
// 2. The path must not be the source file itself
// 3. The path must not be an existing directory
//
// Whether the parent directory exists is left to the writer, which reports
// WRITE_ERROR.
func ValidateOutputPath(path, sourcePath string) error {
	if path == "" {
		return errors.NewInvalidRequest("output path is required")
	}

	cleaned := filepath.Clean(path)
	if !strings.EqualFold(filepath.Ext(cleaned), ".docx") {
		return errors.NewInvalidRequest(fmt.Sprintf("output path must have .docx extension: %s", path))
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid output path %q: %v", path, err))
	}

	if outInfo, err := os.Stat(absPath); err == nil {
		if outInfo.IsDir() {
			return errors.NewInvalidRequest(fmt.Sprintf("output path is a directory: %s", path))
		}
		if srcInfo, err := os.Stat(sourcePath); err == nil && os.SameFile(outInfo, srcInfo) {
			return errors.NewInvalidRequest("output path must not overwrite the source file")
		}
	}
	return nil
}
