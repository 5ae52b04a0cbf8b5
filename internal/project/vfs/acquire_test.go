package vfs

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	perrors "github.com/dshills/textstore/internal/project/errors"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAcquireRead(t *testing.T) {
	path := writeTemp(t, "a.txt", []byte("héllo\nworld"))

	buf, err := Acquire(NewOSFS(), path, AcquireOptions{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer buf.Release()

	if string(buf.Data) != "héllo\nworld" {
		t.Errorf("Data = %q", buf.Data)
	}
	if buf.Mapped || buf.Compressed {
		t.Errorf("Mapped=%v Compressed=%v, want both false", buf.Mapped, buf.Compressed)
	}
}

func TestAcquireMmap(t *testing.T) {
	content := bytes.Repeat([]byte("line of text\n"), 1000)
	path := writeTemp(t, "big.txt", content)

	buf, err := Acquire(NewOSFS(), path, AcquireOptions{Mmap: true})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if runtime.GOOS != "windows" && runtime.GOOS != "plan9" && !buf.Mapped {
		t.Error("expected a mapped buffer")
	}
	if !bytes.Equal(buf.Data, content) {
		t.Error("mapped content differs")
	}
	if err := buf.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
	if err := buf.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}

func TestAcquireEmptyFileIsNotMapped(t *testing.T) {
	path := writeTemp(t, "empty.txt", nil)

	buf, err := Acquire(NewOSFS(), path, AcquireOptions{Mmap: true})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer buf.Release()
	if buf.Mapped || len(buf.Data) != 0 {
		t.Errorf("empty file: Mapped=%v len=%d", buf.Mapped, len(buf.Data))
	}
}

func TestAcquireZstd(t *testing.T) {
	plain := []byte(strings.Repeat("compressed text\n", 50))
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	packed := enc.EncodeAll(plain, nil)
	enc.Close()

	mem := NewMemFS()
	_ = mem.WriteFile("/doc.txt.zst", packed, 0644)

	buf, err := Acquire(mem, "/doc.txt.zst", AcquireOptions{})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !buf.Compressed || !bytes.Equal(buf.Data, plain) {
		t.Errorf("Compressed=%v, data match=%v", buf.Compressed, bytes.Equal(buf.Data, plain))
	}

	_, err = Acquire(mem, "/doc.txt.zst", AcquireOptions{MaxSize: 10})
	if !errors.Is(err, perrors.ErrFileTooLarge) {
		t.Errorf("decompressed size limit: err = %v", err)
	}

	buf, err = Acquire(mem, "/doc.txt.zst", AcquireOptions{MaxSize: int64(len(plain))})
	if err != nil || !bytes.Equal(buf.Data, plain) {
		t.Errorf("content at the size limit: err = %v", err)
	}

	_ = mem.WriteFile("/bad.zst", []byte("not zstd"), 0644)
	if _, err := Acquire(mem, "/bad.zst", AcquireOptions{}); err == nil {
		t.Error("corrupt zstd input should fail")
	}
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestAcquireZstdExpansionIsBounded(t *testing.T) {
	const expanded = 128 << 20

	var packed bytes.Buffer
	enc, err := zstd.NewWriter(&packed)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.CopyN(enc, zeros{}, expanded); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	mem := NewMemFS()
	_ = mem.WriteFile("/zeros.zst", packed.Bytes(), 0644)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err = Acquire(mem, "/zeros.zst", AcquireOptions{MaxSize: 1 << 10})
	runtime.ReadMemStats(&after)

	if !errors.Is(err, perrors.ErrFileTooLarge) {
		t.Fatalf("err = %v, want ErrFileTooLarge", err)
	}
	if grew := after.TotalAlloc - before.TotalAlloc; grew > expanded/3 {
		t.Errorf("Acquire allocated %d bytes for a %d byte limit", grew, 1<<10)
	}
}

func TestAcquireErrors(t *testing.T) {
	mem := NewMemFS()
	_ = mem.AddFile("/big.txt", strings.Repeat("x", 100))
	mem.AddDir("/dir")

	tests := []struct {
		name string
		path string
		opts AcquireOptions
		want error
	}{
		{"missing", "/nope.txt", AcquireOptions{}, fs.ErrNotExist},
		{"directory", "/dir", AcquireOptions{}, perrors.ErrIsDirectory},
		{"too large", "/big.txt", AcquireOptions{MaxSize: 99}, perrors.ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Acquire(mem, tt.path, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			var pe *perrors.FileError
			if !errors.As(err, &pe) || pe.Path != tt.path {
				t.Errorf("err = %v, want FileError for %s", err, tt.path)
			}
		})
	}

	if buf, err := Acquire(mem, "/big.txt", AcquireOptions{MaxSize: 100}); err != nil || len(buf.Data) != 100 {
		t.Errorf("exact limit: err = %v", err)
	}
}

func TestAcquireReader(t *testing.T) {
	src := strings.Repeat("abcdefgh", 1000)
	buf, err := AcquireReader(strings.NewReader(src), 0)
	if err != nil || string(buf.Data) != src {
		t.Fatalf("AcquireReader: err=%v len=%d", err, len(buf.Data))
	}

	if _, err := AcquireReader(strings.NewReader(src), 100); !errors.Is(err, perrors.ErrFileTooLarge) {
		t.Errorf("limit: err = %v", err)
	}

	buf, err = AcquireReader(strings.NewReader(""), 0)
	if err != nil || len(buf.Data) != 0 {
		t.Errorf("empty reader: %v len=%d", err, len(buf.Data))
	}
}
