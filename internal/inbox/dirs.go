package inbox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const dirPerm = 0750

// Dirs is the drop-folder layout: documents land in Inbox and are moved to
// done/ or failed/ once processed.
type Dirs struct {
	Inbox string
}

func (d Dirs) DoneDir() string   { return filepath.Join(d.Inbox, "done") }
func (d Dirs) FailedDir() string { return filepath.Join(d.Inbox, "failed") }

// EnsureDirs creates the inbox and its subdirectories. Idempotent.
func EnsureDirs(d Dirs) error {
	for _, dir := range []string{d.Inbox, d.DoneDir(), d.FailedDir()} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// destination returns a path in dir for the file named base. An existing
// file of the same name is never overwritten.
func destination(dir, base string, now time.Time) string {
	dst := filepath.Join(dir, base)
	if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		return dst
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, now.UTC().Format("20060102T150405.000000000"), ext))
}

// moveFile renames src to dst, falling back to copy and remove across
// devices.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) || errno != syscall.EXDEV {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
