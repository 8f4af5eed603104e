//go:build windows

package docx

import "os"

// openFileNoFollow opens a file for writing.
// O_NOFOLLOW is not available on Windows; O_EXCL still refuses an existing
// file or link at the temp path.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
