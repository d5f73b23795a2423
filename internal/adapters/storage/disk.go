// Package storage keeps uploaded media on local disk.
package storage

import (
    "context"
    "errors"
    "fmt"
    "io"
    "mime"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/gabriel-vasile/mimetype"
    "github.com/sethvargo/go-retry"

    "deepscan/internal/domain"
)

type Disk struct {
    Dir string
}

func NewDisk(dir string) (*Disk, error) {
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return nil, fmt.Errorf("create upload dir: %w", err)
    }
    return &Disk{Dir: dir}, nil
}

// Save streams r into Dir/name. More than limit bytes fails with ErrPayloadTooLarge and leaves nothing behind.
func (d *Disk) Save(ctx context.Context, name string, r io.Reader, limit int64) (string, int64, error) {
    if name == "" || name != filepath.Base(name) {
        return "", 0, fmt.Errorf("%w: bad storage name %q", domain.ErrInvalidInput, name)
    }
    tmp, err := os.CreateTemp(d.Dir, ".upload-*")
    if err != nil {
        return "", 0, err
    }
    defer os.Remove(tmp.Name())

    src := r
    if limit > 0 {
        src = io.LimitReader(r, limit+1)
    }
    n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src})
    if cerr := tmp.Close(); err == nil {
        err = cerr
    }
    if err != nil {
        return "", 0, fmt.Errorf("write upload: %w", err)
    }
    if limit > 0 && n > limit {
        return "", 0, fmt.Errorf("%w: more than %d bytes", domain.ErrPayloadTooLarge, limit)
    }
    path := filepath.Join(d.Dir, name)
    if err := os.Rename(tmp.Name(), path); err != nil {
        return "", 0, err
    }
    return path, n, nil
}

func (d *Disk) Read(path string) ([]byte, error) {
    return os.ReadFile(path)
}

func (d *Disk) Open(path string) (io.ReadSeekCloser, error) {
    f, err := os.Open(path)
    if errors.Is(err, os.ErrNotExist) {
        return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, filepath.Base(path))
    }
    return f, err
}

func (d *Disk) Exists(path string) bool {
    _, err := os.Stat(path)
    return err == nil
}

// Remove deletes path, retrying transient failures. A missing path is not an error.
func (d *Disk) Remove(path string) error {
    if path == "" {
        return nil
    }
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    b := retry.WithMaxRetries(3, retry.NewFibonacci(50*time.Millisecond))
    return retry.Do(ctx, b, func(context.Context) error {
        err := os.Remove(path)
        switch {
        case err == nil, errors.Is(err, os.ErrNotExist):
            return nil
        case errors.Is(err, os.ErrPermission):
            return err
        default:
            return retry.RetryableError(err)
        }
    })
}

// ContentType sniffs the stored bytes. When the sniffed type is not a media type the extension decides.
func (d *Disk) ContentType(path string) string {
    if m, err := mimetype.DetectFile(path); err == nil {
        top, _, _ := strings.Cut(m.String(), "/")
        if top == "image" || top == "video" || top == "audio" {
            return m.String()
        }
    }
    if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
        return t
    }
    return "application/octet-stream"
}

type ctxReader struct {
    ctx context.Context
    r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
    if err := c.ctx.Err(); err != nil {
        return 0, err
    }
    return c.r.Read(p)
}
