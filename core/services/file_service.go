package services

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"bcdice-irc/internal/constants"
	"bcdice-irc/internal/platform"
	"bcdice-irc/internal/settings"
)

// maxLogFileSize is the size above which a log file is rotated on open (10 MB).
const maxLogFileSize = 10 * 1024 * 1024

// FileService manages file paths and log file handles.
type FileService struct {
	PresetsPath string
	CatalogPath string
	LogDir      string

	MainLogFile *os.File
}

// NewFileService resolves paths from s and creates the log directory.
func NewFileService(s settings.Settings) (*FileService, error) {
	fs := &FileService{
		PresetsPath: s.PresetsPath,
		CatalogPath: s.CatalogPath,
		LogDir:      s.LogDir,
	}
	if err := platform.EnsureDirectories(fs.LogDir); err != nil {
		return nil, fmt.Errorf("NewFileService: cannot create log directory: %w", err)
	}
	return fs, nil
}

// MainLogPath is the path of the application log.
func (fs *FileService) MainLogPath() string {
	return filepath.Join(fs.LogDir, constants.MainLogFileName)
}

// OpenLogFiles opens the main log file and redirects the standard logger to it.
// When tee is not nil every line is also written there.
func (fs *FileService) OpenLogFiles(tee io.Writer) error {
	logFile, err := fs.OpenLogFileWithRotation(fs.MainLogPath())
	if err != nil {
		return fmt.Errorf("OpenLogFiles: cannot open main log file: %w", err)
	}
	if tee != nil {
		log.SetOutput(io.MultiWriter(logFile, tee))
	} else {
		log.SetOutput(logFile)
	}
	fs.MainLogFile = logFile
	return nil
}

// CloseLogFiles restores stderr logging and closes all log files.
func (fs *FileService) CloseLogFiles() {
	if fs.MainLogFile != nil {
		log.SetOutput(os.Stderr)
		fs.MainLogFile.Close()
		fs.MainLogFile = nil
	}
}

// OpenLogFileWithRotation opens a log file with rotation support.
func (fs *FileService) OpenLogFileWithRotation(logPath string) (*os.File, error) {
	fs.CheckAndRotateLogFile(logPath)
	// Append so that recent logs survive a restart; a rotated file starts empty.
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// CheckAndRotateLogFile renames the log to .old once it exceeds maxLogFileSize.
func (fs *FileService) CheckAndRotateLogFile(logPath string) {
	info, err := os.Stat(logPath)
	if err != nil {
		return // File doesn't exist yet, nothing to rotate
	}

	if info.Size() > maxLogFileSize {
		oldPath := logPath + ".old"
		_ = os.Remove(oldPath)
		if err := os.Rename(logPath, oldPath); err != nil {
			log.Printf("CheckAndRotateLogFile: Failed to rotate log file %s: %v", logPath, err)
		} else {
			log.Printf("CheckAndRotateLogFile: Rotated log file %s (size: %d bytes)", logPath, info.Size())
		}
	}
}
