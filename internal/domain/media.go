package domain

import (
    "path/filepath"
    "sort"
    "strings"
)

var extensions = map[string]Modality{
    ".jpg": ModalityImage, ".jpeg": ModalityImage, ".png": ModalityImage, ".bmp": ModalityImage,
    ".tiff": ModalityImage, ".webp": ModalityImage,

    ".mp4": ModalityVideo, ".avi": ModalityVideo, ".mov": ModalityVideo, ".mkv": ModalityVideo,
    ".webm": ModalityVideo, ".flv": ModalityVideo, ".wmv": ModalityVideo, ".m4v": ModalityVideo,
    ".3gp": ModalityVideo, ".ogv": ModalityVideo,

    ".wav": ModalityAudio, ".mp3": ModalityAudio, ".flac": ModalityAudio, ".aac": ModalityAudio,
    ".ogg": ModalityAudio,
}

// ModalityOf classifies a filename by extension, case-insensitively.
func ModalityOf(filename string) Modality {
    if m, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
        return m
    }
    return ModalityUnknown
}

// SupportedExtensions lists accepted extensions in sorted order.
func SupportedExtensions() []string {
    out := make([]string, 0, len(extensions))
    for ext := range extensions {
        out = append(out, ext)
    }
    sort.Strings(out)
    return out
}
