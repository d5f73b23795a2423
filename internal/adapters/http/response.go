package httpadapter

import (
    "encoding/json"
    "errors"
    "net/http"

    "deepscan/internal/api"
    "deepscan/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
    writeJSON(w, status, api.Error{Error: api.ErrorBody{Code: code, Message: message, RequestId: requestID}})
}

func mapDomainError(err error) (int, string) {
    switch {
    case errors.Is(err, domain.ErrNotFound):
        return http.StatusNotFound, "not_found"
    case errors.Is(err, domain.ErrForbidden):
        return http.StatusForbidden, "forbidden"
    case errors.Is(err, domain.ErrInvalidInput):
        return http.StatusBadRequest, "invalid_input"
    case errors.Is(err, domain.ErrUnsupportedMedia):
        return http.StatusUnsupportedMediaType, "unsupported_media"
    case errors.Is(err, domain.ErrPayloadTooLarge):
        return http.StatusRequestEntityTooLarge, "payload_too_large"
    case errors.Is(err, domain.ErrOracleUnavailable):
        return http.StatusBadGateway, "oracle_unavailable"
    default:
        return http.StatusInternalServerError, "internal_error"
    }
}
