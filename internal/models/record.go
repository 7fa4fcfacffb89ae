package models

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FileRecord is the wire shape of a stored file as the API returns it.
// The backend owns every field; clients cache records but never mint them.
type FileRecord struct {
	ID               ID           `json:"id"`
	OriginalFilename string       `json:"original_filename"`
	FileSizeBytes    int64        `json:"file_size"`
	FileSizeDisplay  string       `json:"file_size_display"`
	FileType         string       `json:"file_type"`
	UploadDate       time.Time    `json:"upload_date"`
	Description      string       `json:"description"`
	IsPublic         bool         `json:"is_public"`
	DownloadURL      string       `json:"download_url"`
	Owner            *OwnerRecord `json:"user,omitempty"`
}

// OwnerRecord is the wire shape of a file's owner on public listings.
type OwnerRecord struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ShareRecord is the wire shape of a share link.
type ShareRecord struct {
	Token         string     `json:"share_token"`
	ShareURL      string     `json:"share_url"`
	CreatedDate   time.Time  `json:"created_date"`
	ExpiresDate   *time.Time `json:"expires_date,omitempty"`
	DownloadCount int        `json:"download_count"`
	MaxDownloads  *int       `json:"max_downloads,omitempty"`
	File          FileRecord `json:"file"`
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// SizeDisplay renders n bytes in binary units with at most two decimals,
// e.g. 0 Bytes, 1 KB, 2.35 MB.
func SizeDisplay(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := math.Round(float64(n)/math.Pow(1024, float64(i))*100) / 100
	// 1048575 bytes rounds up to 1024 KB, which reads as 1 MB.
	if v >= 1024 && i < len(sizeUnits)-1 {
		i++
		v = math.Round(float64(n)/math.Pow(1024, float64(i))*100) / 100
	}
	return humanize.FtoaWithDigits(v, 2) + " " + sizeUnits[i]
}

// Record converts stored metadata into its wire shape. downloadURL is
// computed by the caller since it depends on the request host.
func (f *File) Record(downloadURL string, withOwner bool) FileRecord {
	rec := FileRecord{
		ID:               ID(f.ID),
		OriginalFilename: f.Name,
		FileSizeBytes:    f.Size,
		FileSizeDisplay:  SizeDisplay(f.Size),
		FileType:         f.ContentType,
		UploadDate:       f.CreatedAt,
		Description:      f.Description,
		IsPublic:         f.IsPublic,
		DownloadURL:      downloadURL,
	}
	if withOwner {
		rec.Owner = &OwnerRecord{ID: ID(f.Owner.ID), Username: f.Owner.Username, Email: f.Owner.Email}
	}
	return rec
}
