package domain

import "testing"

func TestModalityOf(t *testing.T) {
    tests := map[string]Modality{
        "face.JPG":       ModalityImage,
        "scan.tiff":      ModalityImage,
        "clip.mp4":       ModalityVideo,
        "old.3gp":        ModalityVideo,
        "voice.flac":     ModalityAudio,
        "notes.txt":      ModalityUnknown,
        "noext":          ModalityUnknown,
        "archive.tar.gz": ModalityUnknown,
    }
    for name, want := range tests {
        if got := ModalityOf(name); got != want {
            t.Errorf("ModalityOf(%q) = %s, want %s", name, got, want)
        }
    }
    if n := len(SupportedExtensions()); n != 21 {
        t.Errorf("supported extensions = %d, want 21", n)
    }
}

func TestVisualEvidenceConsistent(t *testing.T) {
    var nilEv *VisualEvidence
    if nilEv.Consistent() {
        t.Error("missing evidence is inconsistent")
    }
    ev := &VisualEvidence{Face: FaceEvidence{Detected: true}}
    if ev.Consistent() {
        t.Error("detected face without a box is inconsistent")
    }
    ev.Face.Region = &FaceRegion{Width: 10, Height: 10}
    if !ev.Consistent() {
        t.Error("detected face with a box is consistent")
    }
    if !(&VisualEvidence{}).Consistent() {
        t.Error("no face is consistent")
    }
}
