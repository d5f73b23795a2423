// Package oracle talks to an OpenAI-compatible API: chat completions for images and frames, and
// transcription followed by chat for audio.
package oracle

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/base64"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "mime/multipart"
    "net/http"
    "strings"
    "time"

    "github.com/sethvargo/go-retry"

    "deepscan/internal/domain"
    "deepscan/internal/logging"
    "deepscan/internal/ports"
)

const systemPrompt = "You are an expert deepfake detection analyst. Always respond with valid JSON only."

type Client struct {
    BaseURL            string
    APIKey             string
    Model              string
    BackupModel        string
    TranscriptionModel string
    HTTP               *http.Client
    // Cache is optional. Hits skip the network entirely.
    Cache    ports.ResponseCache
    CacheTTL time.Duration
    // Retries and Backoff shape the Fibonacci retry on 429, 5xx and transport errors.
    Retries uint64
    Backoff time.Duration
    log     *slog.Logger
}

func New(baseURL, apiKey, model, backup, transcription string, timeout time.Duration) *Client {
    if timeout <= 0 {
        timeout = 90 * time.Second
    }
    return &Client{
        BaseURL:            strings.TrimRight(baseURL, "/"),
        APIKey:             apiKey,
        Model:              model,
        BackupModel:        backup,
        TranscriptionModel: transcription,
        HTTP:               &http.Client{Timeout: timeout},
        Retries:            3,
        Backoff:            time.Second,
        log:                logging.New("oracle"),
    }
}

// Classify returns the model's raw text. Failure to reach any model is reported as ErrOracleUnavailable.
func (c *Client) Classify(ctx context.Context, media ports.Media, prompt string) (string, error) {
    key := cacheKey(c.Model, prompt, media.Data)
    if c.Cache != nil {
        if v, found, err := c.Cache.Get(ctx, key); err != nil {
            c.logger().Warn("response cache read failed", "err", err)
        } else if found {
            c.logger().Debug("response cache hit", "key", key[:12])
            return v, nil
        }
    }

    var content any
    switch media.Modality {
    case domain.ModalityAudio:
        transcript, err := c.transcribe(ctx, media)
        if err != nil {
            return "", err
        }
        content = prompt + "\n\nTranscription:\n" + transcript
    default:
        ct := media.ContentType
        if ct == "" {
            ct = "image/jpeg"
        }
        content = []contentPart{
            {Type: "text", Text: prompt},
            {Type: "image_url", ImageURL: &imageURL{URL: "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(media.Data)}},
        }
    }

    text, model, err := c.chatWithFallback(ctx, content)
    if err != nil {
        return "", err
    }
    // The key names the primary model; backup answers are not stored under it.
    if c.Cache != nil && model == c.Model {
        if err := c.Cache.Set(ctx, key, text, c.CacheTTL); err != nil {
            c.logger().Warn("response cache write failed", "err", err)
        }
    }
    return text, nil
}

// chatWithFallback returns the reply and the model that produced it.
func (c *Client) chatWithFallback(ctx context.Context, content any) (string, string, error) {
    text, err := c.chat(ctx, c.Model, content)
    if err == nil {
        return text, c.Model, nil
    }
    if ctx.Err() != nil {
        return "", "", ctx.Err()
    }
    c.logger().Warn("primary model unavailable", "model", c.Model, "err", err)
    if c.BackupModel == "" || c.BackupModel == c.Model {
        return "", "", fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
    }
    c.logger().Info("switching to backup model", "model", c.BackupModel)
    text, err = c.chat(ctx, c.BackupModel, content)
    if err != nil {
        return "", "", fmt.Errorf("%w: both models failed: %v", domain.ErrOracleUnavailable, err)
    }
    return text, c.BackupModel, nil
}

type contentPart struct {
    Type     string    `json:"type"`
    Text     string    `json:"text,omitempty"`
    ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
    URL string `json:"url"`
}

type message struct {
    Role    string `json:"role"`
    Content any    `json:"content"`
}

type responseFormat struct {
    Type string `json:"type"`
}

type chatRequest struct {
    Model          string          `json:"model"`
    Messages       []message       `json:"messages"`
    Temperature    float64         `json:"temperature"`
    MaxTokens      int             `json:"max_tokens"`
    ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
    Choices []struct {
        Message struct {
            Content string `json:"content"`
        } `json:"message"`
    } `json:"choices"`
}

// chat asks for JSON mode first. A 400 drops JSON mode once, since not every model supports it.
func (c *Client) chat(ctx context.Context, model string, content any) (string, error) {
    req := chatRequest{
        Model: model,
        Messages: []message{
            {Role: "system", Content: systemPrompt},
            {Role: "user", Content: content},
        },
        Temperature:    0.2,
        MaxTokens:      2000,
        ResponseFormat: &responseFormat{Type: "json_object"},
    }
    body, err := c.postJSON(ctx, "/chat/completions", req)
    var se *statusError
    if errors.As(err, &se) && se.code == http.StatusBadRequest {
        c.logger().Warn("json response format rejected, retrying without it", "model", model)
        req.ResponseFormat = nil
        body, err = c.postJSON(ctx, "/chat/completions", req)
    }
    if err != nil {
        return "", err
    }
    var out chatResponse
    if err := json.Unmarshal(body, &out); err != nil {
        return "", fmt.Errorf("decode chat response: %w", err)
    }
    if len(out.Choices) == 0 {
        return "", errors.New("empty chat response")
    }
    return out.Choices[0].Message.Content, nil
}

func (c *Client) transcribe(ctx context.Context, media ports.Media) (string, error) {
    var text string
    err := c.do(ctx, func(ctx context.Context) ([]byte, error) {
        var buf bytes.Buffer
        mw := multipart.NewWriter(&buf)
        _ = mw.WriteField("model", c.TranscriptionModel)
        _ = mw.WriteField("response_format", "json")
        fw, err := mw.CreateFormFile("file", "audio"+extensionFor(media.ContentType))
        if err != nil {
            return nil, err
        }
        if _, err := fw.Write(media.Data); err != nil {
            return nil, err
        }
        if err := mw.Close(); err != nil {
            return nil, err
        }
        return c.send(ctx, "/audio/transcriptions", mw.FormDataContentType(), &buf)
    }, func(body []byte) error {
        var out struct {
            Text string `json:"text"`
        }
        if err := json.Unmarshal(body, &out); err != nil {
            return fmt.Errorf("decode transcription: %w", err)
        }
        text = out.Text
        return nil
    })
    if err != nil {
        return "", fmt.Errorf("%w: transcription: %v", domain.ErrOracleUnavailable, err)
    }
    return text, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
    data, err := json.Marshal(payload)
    if err != nil {
        return nil, err
    }
    var body []byte
    err = c.do(ctx, func(ctx context.Context) ([]byte, error) {
        return c.send(ctx, path, "application/json", bytes.NewReader(data))
    }, func(b []byte) error {
        body = b
        return nil
    })
    return body, err
}

// do retries attempt on rate limiting, server errors and transport failures, then hands the body to accept.
func (c *Client) do(ctx context.Context, attempt func(context.Context) ([]byte, error), accept func([]byte) error) error {
    backoff := c.Backoff
    if backoff <= 0 {
        backoff = time.Second
    }
    b := retry.WithMaxRetries(c.Retries, retry.NewFibonacci(backoff))
    return retry.Do(ctx, b, func(ctx context.Context) error {
        body, err := attempt(ctx)
        if err != nil {
            var se *statusError
            if errors.As(err, &se) && !se.retryable() {
                return err
            }
            if ctx.Err() != nil {
                return ctx.Err()
            }
            c.logger().Warn("oracle request failed, retrying", "err", err)
            return retry.RetryableError(err)
        }
        return accept(body)
    })
}

func (c *Client) send(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
    if err != nil {
        return nil, err
    }
    req.Header.Set("Authorization", "Bearer "+c.APIKey)
    req.Header.Set("Content-Type", contentType)

    start := time.Now()
    resp, err := c.HTTP.Do(req)
    if err != nil {
        return nil, err
    }
    defer resp.Body.Close()
    data, err := io.ReadAll(resp.Body)
    if err != nil {
        return nil, err
    }
    c.logger().Debug("oracle response", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start), "bytes", len(data))
    if resp.StatusCode != http.StatusOK {
        return nil, &statusError{code: resp.StatusCode, body: truncate(string(data), 300)}
    }
    return data, nil
}

type statusError struct {
    code int
    body string
}

func (e *statusError) Error() string { return fmt.Sprintf("oracle returned %d: %s", e.code, e.body) }

func (e *statusError) retryable() bool {
    return e.code == http.StatusTooManyRequests || e.code >= 500
}

func cacheKey(model, prompt string, data []byte) string {
    h := sha256.New()
    h.Write([]byte(model))
    h.Write([]byte{0})
    h.Write([]byte(prompt))
    h.Write([]byte{0})
    h.Write(data)
    return hex.EncodeToString(h.Sum(nil))
}

func extensionFor(contentType string) string {
    switch contentType {
    case "audio/mpeg":
        return ".mp3"
    case "audio/flac", "audio/x-flac":
        return ".flac"
    case "audio/aac":
        return ".aac"
    case "audio/ogg":
        return ".ogg"
    default:
        return ".wav"
    }
}

func truncate(s string, n int) string {
    if len(s) <= n {
        return s
    }
    return s[:n] + "..."
}

func (c *Client) logger() *slog.Logger {
    if c.log != nil {
        return c.log
    }
    return logging.New("oracle")
}
