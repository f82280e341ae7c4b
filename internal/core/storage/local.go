package storage

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

type FileMetadata struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

type DiskStats struct {
	Total     int64 `json:"total_bytes"`
	Used      int64 `json:"used_bytes"`
	Available int64 `json:"available_bytes"`
}

// Provider handles local filesystem access for the download root.
type Provider struct {
	root string
}

func NewProvider(root string) *Provider {
	abs, _ := filepath.Abs(root)
	return &Provider{root: abs}
}

func (p *Provider) Root() string { return p.root }

func (p *Provider) Open(path string) (*os.File, FileMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FileMetadata{}, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, FileMetadata{}, fmt.Errorf("stat file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return f, FileMetadata{
		Size:        stat.Size(),
		ContentType: contentType,
		ModTime:     stat.ModTime(),
	}, nil
}

// Delete removes a file, treating an already-absent file as success.
func (p *Provider) Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *Provider) DiskUsage() (DiskStats, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(p.root, &stat); err != nil {
		return DiskStats{}, err
	}

	total := int64(stat.Blocks) * int64(stat.Bsize)
	available := int64(stat.Bavail) * int64(stat.Bsize)

	return DiskStats{
		Total:     total,
		Used:      total - available,
		Available: available,
	}, nil
}
