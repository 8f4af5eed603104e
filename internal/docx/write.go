package docx

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/autodocx/internal/errors"
)

// WriteFile writes data to path atomically. The parent directory must
// already exist; an existing file at path is replaced only once the new
// content is fully written.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return errors.NewWriteError(path, fmt.Errorf("output directory: %w", err))
	}
	if !info.IsDir() {
		return errors.NewWriteError(path, fmt.Errorf("%s is not a directory", dir))
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return errors.NewWriteError(path, fmt.Errorf("%s is a directory", path))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewWriteError(path, err)
	}

	// Clean up temp file on failure (existing output is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewWriteError(path, err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewWriteError(path, err)
	}
	if err := file.Close(); err != nil {
		file = nil
		return errors.NewWriteError(path, err)
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewWriteError(path, err)
	}
	success = true
	return nil
}
