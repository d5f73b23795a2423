package domain

import "errors"

var (
    ErrInvalidInput      = errors.New("invalid input")
    ErrNotFound          = errors.New("not found")
    ErrForbidden         = errors.New("forbidden")
    ErrUnsupportedMedia  = errors.New("unsupported media type")
    ErrPayloadTooLarge   = errors.New("payload too large")
    ErrOracleUnavailable = errors.New("oracle unavailable")
    ErrNoDecodableFrames = errors.New("no decodable frames")
    ErrCorruptMedia      = errors.New("corrupt media")
)
