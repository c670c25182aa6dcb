package file

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const DirPerm fs.FileMode = 0750

var (
	ErrPathIsDir  = errors.New("supplied path is a directory")
	ErrPathIsFile = errors.New("supplied path is a file")
)

// CreateFileP Creates a file and all its directories
// Make sure you close the file when using this function!
func CreateFileP(filePath string, perm fs.FileMode) (*os.File, error) {
	absDirPath, err := filepath.Abs(filepath.Dir(filePath))
	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(absDirPath, perm)
	if err != nil {
		return nil, err
	}

	return os.Create(filePath)
}

// WriteTo replaces the file at filePath with text. The data is written to a
// sibling temp file first and renamed into place, readers never see a
// partially written file.
func WriteTo(filePath string, text string) error {
	if err := IsDir(filePath); err == nil {
		return ErrPathIsDir
	}

	tmpPath := filePath + ".tmp"
	f, err := CreateFileP(tmpPath, DirPerm)
	if err != nil {
		return err
	}

	_, err = f.WriteString(text)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return MoveFile(tmpPath, filePath)
}

// Open opens an existing regular file for reading
func Open(path string) (*os.File, error) {
	if err := Exists(path); err != nil {
		return nil, err
	}

	return os.Open(path)
}

func MoveFile(sourcePath string, destPath string) error {
	return os.Rename(sourcePath, destPath)
}

func Info(path string) (fs.FileInfo, error) {
	s, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Exists returns nil if path exists and is not a directory
func Exists(path string) error {
	s, err := Info(path)
	if err != nil {
		return err
	}

	if s.IsDir() {
		return ErrPathIsDir
	}

	return nil
}

func IsDir(path string) error {
	s, err := Info(path)
	if err != nil {
		return err
	}

	if !s.IsDir() {
		return ErrPathIsFile
	}

	return nil
}
