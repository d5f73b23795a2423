package heatmap

import (
    "bytes"
    "encoding/base64"
    "image"
    "image/color"
    "math"

    "github.com/disintegration/imaging"
)

const (
    minThreshold = 0.2
    maxThreshold = 0.5
)

// AdaptiveThreshold picks the 70th percentile of the field, clamped to [0.2, 0.5], so that some
// positive region is always visible. An all-zero field uses 0.2.
func AdaptiveThreshold(f Field) float64 {
    _, hi := f.minMax()
    if len(f.Values) == 0 || hi <= 0 {
        return minThreshold
    }
    return math.Max(minThreshold, math.Min(maxThreshold, Percentile(f.Values, 70)))
}

// Colorize renders the field. Binary mode paints values at or above the adaptive threshold red and
// values below it blue, each fading to white near the threshold. Otherwise the JET colormap is used.
func Colorize(f Field, binary bool) *image.RGBA {
    f = unitRange(f)
    img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
    if !binary {
        for i, v := range f.Values {
            img.SetRGBA(i%f.W, i/f.W, Jet(v))
        }
        return img
    }

    t := AdaptiveThreshold(f)
    for i, v := range f.Values {
        var c color.RGBA
        if v >= t {
            k := clamp01((v - t) / (1 - t + 1e-8))
            fade := uint8(255 * (1 - k))
            c = color.RGBA{R: 255, G: fade, B: fade, A: 255}
        } else {
            k := clamp01((t - v) / (t + 1e-8))
            fade := uint8(255 * (1 - k))
            c = color.RGBA{R: fade, G: fade, B: 255, A: 255}
        }
        img.SetRGBA(i%f.W, i/f.W, c)
    }
    return img
}

// Jet maps v in [0,1] to the classic blue-cyan-yellow-red ramp.
func Jet(v float64) color.RGBA {
    v = clamp01(v)
    ch := func(offset float64) uint8 {
        return uint8(math.Round(255 * clamp01(1.5-math.Abs(4*v-offset))))
    }
    return color.RGBA{R: ch(3), G: ch(2), B: ch(1), A: 255}
}

// Overlay colorizes the field, resizes it to the image with a Lanczos filter and blends:
// out = (1-alpha)*image + alpha*colorized. The result always has the image's dimensions.
func Overlay(img image.Image, f Field, alpha float64, binary bool) *image.RGBA {
    alpha = clamp01(alpha)
    src := imaging.Clone(img)
    w, h := src.Bounds().Dx(), src.Bounds().Dy()

    var colored image.Image = Colorize(f, binary)
    if f.W != w || f.H != h {
        colored = imaging.Resize(colored, w, h, imaging.Lanczos)
    }
    cb := colored.Bounds()

    out := image.NewRGBA(image.Rect(0, 0, w, h))
    for y := 0; y < h; y++ {
        for x := 0; x < w; x++ {
            s := src.NRGBAAt(x, y)
            r, g, b, _ := colored.At(cb.Min.X+x, cb.Min.Y+y).RGBA()
            out.SetRGBA(x, y, color.RGBA{
                R: blend(s.R, uint8(r>>8), alpha),
                G: blend(s.G, uint8(g>>8), alpha),
                B: blend(s.B, uint8(b>>8), alpha),
                A: 255,
            })
        }
    }
    return out
}

// EncodePNGDataURI encodes img as PNG wrapped in a data URI.
func EncodePNGDataURI(img image.Image) (string, error) {
    var buf bytes.Buffer
    if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
        return "", err
    }
    return DataURI("image/png", buf.Bytes()), nil
}

func DataURI(mime string, data []byte) string {
    return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func blend(a, b uint8, alpha float64) uint8 {
    v := (1-alpha)*float64(a) + alpha*float64(b)
    return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

func clamp01(v float64) float64 {
    if v != v || v < 0 {
        return 0
    }
    if v > 1 {
        return 1
    }
    return v
}
