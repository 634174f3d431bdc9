package ebook

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tandem/internal/config"
)

// DocumentID derives the identifier the reading-side provider uses for an
// e-book. The content method matches KOReader's sparse digest so positions
// land on the same document the reader device registered; the filename
// method suits sync servers configured to hash titles instead.
func DocumentID(path, method string) (string, error) {
	if method == config.HashMethodFilename {
		sum := md5.Sum([]byte(filepath.Base(path)))
		return hex.EncodeToString(sum[:]), nil
	}
	return partialMD5(path)
}

// partialMD5 hashes 1024-byte samples at offset 0 and at 1024*4^i for
// i in [0,10], stopping at end of file. Sampling keeps the digest cheap on
// large books while staying sensitive to content changes anywhere early in
// the file.
func partialMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open ebook for digest: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat ebook for digest: %w", err)
	}
	size := info.Size()

	digest := md5.New()
	buf := make([]byte, 1024)
	for i := -1; i <= 10; i++ {
		var offset int64
		if i >= 0 {
			offset = 1024 << (2 * i)
		}
		if offset >= size {
			break
		}
		n, err := f.ReadAt(buf, offset)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("sample ebook at %d: %w", offset, err)
		}
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
