package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"audioshelf/internal/library"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// AudioTrack describes a scanned track at path with the given inode and
// duration in seconds.
func AudioTrack(index int, ino, path string, duration float64) library.AudioFile {
	ext := filepath.Ext(path)
	return library.AudioFile{
		Index: index,
		Ino:   ino,
		Metadata: library.FileMetadata{
			Filename: filepath.Base(path),
			Ext:      ext,
			Path:     path,
			RelPath:  filepath.Base(path),
			Size:     1024,
		},
		Format:   library.FileMetadata{Ext: ext}.Format(),
		Duration: duration,
		Chapters: []library.Chapter{},
		MetaTags: map[string]string{},
	}
}
