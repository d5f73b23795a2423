package heatmap

import (
    "bytes"
    "fmt"
    "image"

    "github.com/disintegration/imaging"
    _ "golang.org/x/image/bmp"
    _ "golang.org/x/image/tiff"
    _ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered still-image format, honouring EXIF orientation.
func DecodeImage(data []byte) (image.Image, error) {
    img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
    if err != nil {
        return nil, fmt.Errorf("decode image: %w", err)
    }
    return img, nil
}
