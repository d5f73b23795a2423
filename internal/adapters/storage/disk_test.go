package storage

import (
    "bytes"
    "context"
    "errors"
    "io"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "deepscan/internal/domain"
)

func newDisk(t *testing.T) *Disk {
    t.Helper()
    d, err := NewDisk(filepath.Join(t.TempDir(), "uploads"))
    if err != nil {
        t.Fatal(err)
    }
    return d
}

func TestSave_RoundTrip(t *testing.T) {
    d := newDisk(t)
    path, n, err := d.Save(context.Background(), "abc.txt", strings.NewReader("hello"), 10)
    if err != nil {
        t.Fatal(err)
    }
    if n != 5 || filepath.Base(path) != "abc.txt" {
        t.Errorf("saved %s (%d bytes)", path, n)
    }
    data, err := d.Read(path)
    if err != nil || string(data) != "hello" {
        t.Errorf("read = %q, %v", data, err)
    }
    if !d.Exists(path) {
        t.Error("Exists = false")
    }
}

func TestSave_Limit(t *testing.T) {
    d := newDisk(t)
    _, _, err := d.Save(context.Background(), "big.bin", bytes.NewReader(make([]byte, 11)), 10)
    if !errors.Is(err, domain.ErrPayloadTooLarge) {
        t.Fatalf("err = %v", err)
    }
    entries, _ := os.ReadDir(d.Dir)
    if len(entries) != 0 {
        t.Errorf("left %d files behind", len(entries))
    }
    if _, _, err := d.Save(context.Background(), "exact.bin", bytes.NewReader(make([]byte, 10)), 10); err != nil {
        t.Errorf("exactly limit bytes should be accepted: %v", err)
    }
}

func TestSave_RejectsPaths(t *testing.T) {
    d := newDisk(t)
    for _, name := range []string{"", "../x.png", "a/b.png"} {
        if _, _, err := d.Save(context.Background(), name, strings.NewReader("x"), 0); !errors.Is(err, domain.ErrInvalidInput) {
            t.Errorf("Save(%q) err = %v", name, err)
        }
    }
}

func TestRemove_Idempotent(t *testing.T) {
    d := newDisk(t)
    path, _, err := d.Save(context.Background(), "f.wav", strings.NewReader("x"), 0)
    if err != nil {
        t.Fatal(err)
    }
    if err := d.Remove(path); err != nil {
        t.Fatal(err)
    }
    if err := d.Remove(path); err != nil {
        t.Errorf("second remove: %v", err)
    }
    if d.Exists(path) {
        t.Error("file still exists")
    }
}

func TestContentType(t *testing.T) {
    d := newDisk(t)
    png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
    p1, _, _ := d.Save(context.Background(), "img.jpg", bytes.NewReader(png), 0)
    if got := d.ContentType(p1); got != "image/png" {
        t.Errorf("sniffed = %s, want image/png", got)
    }
    p2, _, _ := d.Save(context.Background(), "clip.png", strings.NewReader("not really an image"), 0)
    if got := d.ContentType(p2); got != "image/png" {
        t.Errorf("extension fallback = %s, want image/png", got)
    }
}

func TestOpen(t *testing.T) {
    d := newDisk(t)
    path, _, err := d.Save(context.Background(), "clip.mp4", strings.NewReader("0123456789"), 0)
    if err != nil {
        t.Fatal(err)
    }
    f, err := d.Open(path)
    if err != nil {
        t.Fatal(err)
    }
    defer f.Close()
    if _, err := f.Seek(4, io.SeekStart); err != nil {
        t.Fatal(err)
    }
    rest, _ := io.ReadAll(f)
    if string(rest) != "456789" {
        t.Errorf("read after seek = %q", rest)
    }

    _ = d.Remove(path)
    if _, err := d.Open(path); !errors.Is(err, domain.ErrNotFound) {
        t.Errorf("open removed file err = %v", err)
    }
}
