// Package heatmap renders 2-D intensity fields as color images and blends them over source images.
package heatmap

import (
    "errors"
    "fmt"
    "image"
    "image/color"
    "math"
    "sort"

    "github.com/disintegration/imaging"
)

var ErrShape = errors.New("heatmap: data does not match shape")

// Field is a row-major intensity grid, W columns by H rows.
type Field struct {
    W, H   int
    Values []float64
}

func NewField(w, h int) Field {
    return Field{W: w, H: h, Values: make([]float64, w*h)}
}

// FromValues builds a field from a flat row-major slice and a [height, width] shape.
func FromValues(values []float64, shape [2]int) (Field, error) {
    h, w := shape[0], shape[1]
    if h <= 0 || w <= 0 || len(values) != h*w {
        return Field{}, fmt.Errorf("%w: %d values for %dx%d", ErrShape, len(values), h, w)
    }
    out := NewField(w, h)
    copy(out.Values, values)
    return out, nil
}

// FromBytes decodes an 8-bit field into [0,1] intensities.
func FromBytes(data []uint8, shape [2]int) (Field, error) {
    vals := make([]float64, len(data))
    for i, b := range data {
        vals[i] = float64(b) / 255
    }
    return FromValues(vals, shape)
}

func (f Field) At(x, y int) float64 { return f.Values[y*f.W+x] }

func (f Field) Set(x, y int, v float64) { f.Values[y*f.W+x] = v }

// Shape returns [height, width].
func (f Field) Shape() [2]int { return [2]int{f.H, f.W} }

func (f Field) minMax() (lo, hi float64) {
    if len(f.Values) == 0 {
        return 0, 0
    }
    lo, hi = f.Values[0], f.Values[0]
    for _, v := range f.Values[1:] {
        lo = math.Min(lo, v)
        hi = math.Max(hi, v)
    }
    return lo, hi
}

// Normalized rescales the field to [0,1] by min-max. A flat field becomes all zeros.
func Normalized(f Field) Field {
    out := NewField(f.W, f.H)
    lo, hi := f.minMax()
    if hi <= lo {
        return out
    }
    for i, v := range f.Values {
        out.Values[i] = (v - lo) / (hi - lo)
    }
    return out
}

// unitRange stretches any field with contrast to [0,1]. A flat field has nothing to stretch and is only
// clamped.
func unitRange(f Field) Field {
    lo, hi := f.minMax()
    if hi > lo {
        return Normalized(f)
    }
    out := NewField(f.W, f.H)
    for i, v := range f.Values {
        out.Values[i] = clamp01(v)
    }
    return out
}

// Percentile uses linear interpolation between closest ranks.
func Percentile(values []float64, p float64) float64 {
    if len(values) == 0 {
        return 0
    }
    s := append([]float64(nil), values...)
    sort.Float64s(s)
    rank := p / 100 * float64(len(s)-1)
    lo := int(math.Floor(rank))
    hi := int(math.Ceil(rank))
    if lo == hi {
        return s[lo]
    }
    return s[lo] + (s[hi]-s[lo])*(rank-float64(lo))
}

// Quantize maps [0,1] intensities to bytes, clamping out-of-range values.
func Quantize(f Field) []uint8 {
    out := make([]uint8, len(f.Values))
    for i, v := range f.Values {
        out[i] = toByte(v)
    }
    return out
}

// Resize resamples the field with a Lanczos filter.
func Resize(f Field, w, h int) Field {
    if f.W == w && f.H == h {
        return f
    }
    return fromGray(imaging.Resize(f.gray(), w, h, imaging.Lanczos))
}

// Smooth applies a Gaussian blur. sigma 0.85 approximates a 3x3 kernel.
func Smooth(f Field, sigma float64) Field {
    if sigma <= 0 {
        return f
    }
    return fromGray(imaging.Blur(f.gray(), sigma))
}

func (f Field) gray() *image.Gray {
    img := image.NewGray(image.Rect(0, 0, f.W, f.H))
    for i, v := range f.Values {
        img.Pix[i] = toByte(v)
    }
    return img
}

func fromGray(img image.Image) Field {
    b := img.Bounds()
    out := NewField(b.Dx(), b.Dy())
    for y := 0; y < out.H; y++ {
        for x := 0; x < out.W; x++ {
            g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
            out.Set(x, y, float64(g.Y)/255)
        }
    }
    return out
}

func toByte(v float64) uint8 {
    if v != v || v <= 0 {
        return 0
    }
    if v >= 1 {
        return 255
    }
    return uint8(math.Round(v * 255))
}
