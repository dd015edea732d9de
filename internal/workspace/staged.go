package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StageMode decides what Commit does with the staged content.
type StageMode int

const (
	// StageReplace renames the staged file over the final path.
	StageReplace StageMode = iota
	// StageAppend appends the staged content to the final path.
	StageAppend
)

const stagingSuffix = ".tmp"

// IsStagingFile reports whether a file name looks like content left by Stage.
func IsStagingFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, stagingSuffix) && len(name) > len(".x"+stagingSuffix)
}

// StagedFile is content written next to its destination but not yet visible
// there. Exactly one of Commit or Discard should be called.
type StagedFile struct {
	finalPath string
	tmpPath   string
	mode      StageMode
	done      bool
}

// Stage writes content to a hidden temporary sibling of finalPath.
func Stage(finalPath string, content []byte, perm os.FileMode, mode StageMode) (*StagedFile, error) {
	dir, base := filepath.Split(finalPath)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s%s", base, uuid.NewString(), stagingSuffix))

	if err := os.WriteFile(tmpPath, content, perm); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", finalPath, err)
	}
	// WriteFile is subject to umask
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to set mode on %s: %w", tmpPath, err)
	}

	return &StagedFile{finalPath: finalPath, tmpPath: tmpPath, mode: mode}, nil
}

// Path returns the destination path.
func (s *StagedFile) Path() string {
	return s.finalPath
}

// TempPath returns where the content currently lives.
func (s *StagedFile) TempPath() string {
	return s.tmpPath
}

// Commit makes the staged content visible at the destination.
func (s *StagedFile) Commit() error {
	if s.done {
		return nil
	}

	switch s.mode {
	case StageAppend:
		data, err := os.ReadFile(s.tmpPath)
		if err != nil {
			return fmt.Errorf("failed to read staged %s: %w", s.tmpPath, err)
		}
		f, err := os.OpenFile(s.finalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", s.finalPath, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return fmt.Errorf("failed to append to %s: %w", s.finalPath, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", s.finalPath, err)
		}
		if err := os.Remove(s.tmpPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove staged %s: %w", s.tmpPath, err)
		}
	default:
		if err := os.Rename(s.tmpPath, s.finalPath); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", s.finalPath, err)
		}
	}

	s.done = true
	return nil
}

// Discard drops the staged content. Safe to call after Commit.
func (s *StagedFile) Discard() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := os.Remove(s.tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to discard staged %s: %w", s.tmpPath, err)
	}
	return nil
}
