package compose

import (
	"fmt"
	"os"
	"time"
)

// backupTimestampLayout is the timestamp embedded in backup file names.
const backupTimestampLayout = "20060102_150405"

// BackupPath returns the backup file name for path at the given time,
// in the same directory as the original.
func BackupPath(path string, now time.Time) string {
	return path + ".backup." + now.Format(backupTimestampLayout)
}

// Backup copies the file at path byte-for-byte to a timestamped backup
// next to it and returns the backup path. The original file mode is
// preserved. Callers must not edit the original unless Backup succeeds.
func Backup(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat compose file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read compose file: %w", err)
	}

	dst := BackupPath(path, now)
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return dst, nil
}
