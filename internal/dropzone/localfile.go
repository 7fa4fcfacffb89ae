package dropzone

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/validate"
)

// ErrDirectory is returned when a folder is dropped or picked.
var ErrDirectory = errors.New("folders cannot be uploaded")

// extensionTypes pins the extensions of every accepted type so detection
// does not depend on the host's mime tables.
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".zip":  "application/zip",
	".rar":  "application/x-rar-compressed",
}

func init() {
	for ext, typ := range extensionTypes {
		_ = mime.AddExtensionType(ext, typ)
	}
}

// TypeByName returns the MIME type implied by name's extension, without
// parameters, or "" when the extension is unknown.
func TypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	return validate.BaseType(mime.TypeByExtension(ext))
}

// LoadLocalFile stats path and describes it for upload. The contents are
// read only when the returned file is opened.
func LoadLocalFile(path string) (*models.LocalFile, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, ErrDirectory
	}

	name := filepath.Base(abs)
	return &models.LocalFile{
		Name:     name,
		Path:     abs,
		Size:     info.Size(),
		MIMEType: TypeByName(name),
		Open: func() (io.ReadCloser, error) {
			return os.Open(abs)
		},
	}, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
