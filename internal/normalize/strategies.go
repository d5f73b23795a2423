package normalize

import (
    "encoding/json"
    "regexp"
    "strings"
)

// Strategy tries to pull a JSON object out of an oracle response.
type Strategy func(text string) (map[string]any, bool)

var fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// DefaultStrategies is the parse chain applied before the lexical fallback.
var DefaultStrategies = []Strategy{FencedBlock, BalancedObject, WholeText}

// FencedBlock parses the first ```json fenced object.
func FencedBlock(text string) (map[string]any, bool) {
    m := fencedRe.FindStringSubmatch(text)
    if m == nil { return nil, false }
    return decodeObject(m[1])
}

// BalancedObject parses the first brace-balanced {...} substring that decodes as an object.
// Braces inside JSON strings are ignored when matching.
func BalancedObject(text string) (map[string]any, bool) {
    for start := strings.IndexByte(text, '{'); start >= 0; {
        if end := matchBrace(text, start); end > start {
            if obj, ok := decodeObject(text[start : end+1]); ok {
                return obj, true
            }
        }
        next := strings.IndexByte(text[start+1:], '{')
        if next < 0 { break }
        start += next + 1
    }
    return nil, false
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
    depth := 0
    inString, escaped := false, false
    for i := start; i < len(text); i++ {
        c := text[i]
        if inString {
            switch {
            case escaped:
                escaped = false
            case c == '\\':
                escaped = true
            case c == '"':
                inString = false
            }
            continue
        }
        switch c {
        case '"':
            inString = true
        case '{':
            depth++
        case '}':
            depth--
            if depth == 0 { return i }
        }
    }
    return -1
}

// WholeText parses the trimmed response as a JSON object.
func WholeText(text string) (map[string]any, bool) {
    return decodeObject(strings.TrimSpace(text))
}

// FirstSuccess combines strategies; the first one that yields an object wins.
func FirstSuccess(strategies ...Strategy) Strategy {
    return func(text string) (map[string]any, bool) {
        for _, s := range strategies {
            if obj, ok := s(text); ok {
                return obj, true
            }
        }
        return nil, false
    }
}

func decodeObject(s string) (map[string]any, bool) {
    if s == "" { return nil, false }
    var obj map[string]any
    if err := json.Unmarshal([]byte(s), &obj); err != nil {
        return nil, false
    }
    if obj == nil { return nil, false }
    return obj, true
}
