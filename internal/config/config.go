package config

import (
    "fmt"
    "os"
    "time"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

type Config struct {
    Env            string
    ListenAddr     string
    MaxConnections int
    DatabaseURL    string
    RedisURL       string
    LogLevel       string
    LogFormat      string

    UploadDir       string
    MaxUploadBytes  int64
    AnalysisWorkers int
    CleanupDelay    time.Duration
    StaleFileAge    time.Duration
    SweepInterval   time.Duration

    OracleBaseURL      string
    OracleAPIKey       string
    OracleModel        string
    OracleBackupModel  string
    TranscriptionModel string
    OracleTimeout      time.Duration
    ResponseCacheTTL   time.Duration

    VideoMaxFrames      int
    VideoFrameInterval  int
    VideoParallelFrames int

    FaceCascadePath   string
    PuplocCascadePath string
}

// fileConfig mirrors the optional YAML file. Zero values leave defaults untouched.
type fileConfig struct {
    Server struct {
        ListenAddr     string `yaml:"listen_addr"`
        MaxConnections int    `yaml:"max_connections"`
    } `yaml:"server"`
    Storage struct {
        UploadDir      string `yaml:"upload_dir"`
        MaxUploadBytes int64  `yaml:"max_upload_bytes"`
        CleanupDelay   string `yaml:"cleanup_delay"`
        StaleFileAge   string `yaml:"stale_file_age"`
        SweepInterval  string `yaml:"sweep_interval"`
    } `yaml:"storage"`
    Oracle struct {
        BaseURL            string `yaml:"base_url"`
        Model              string `yaml:"model"`
        BackupModel        string `yaml:"backup_model"`
        TranscriptionModel string `yaml:"transcription_model"`
        Timeout            string `yaml:"timeout"`
    } `yaml:"oracle"`
    Video struct {
        MaxFrames      int `yaml:"max_frames"`
        FrameInterval  int `yaml:"frame_interval"`
        ParallelFrames int `yaml:"parallel_frames"`
    } `yaml:"video"`
    Faces struct {
        Cascade string `yaml:"cascade"`
        Puploc  string `yaml:"puploc"`
    } `yaml:"faces"`
    Workers int `yaml:"analysis_workers"`
}

func Default() Config {
    return Config{
        Env:                 "development",
        ListenAddr:          ":8080",
        MaxConnections:      256,
        LogLevel:            "info",
        LogFormat:           "text",
        UploadDir:           "uploads",
        MaxUploadBytes:      100 << 20,
        AnalysisWorkers:     4,
        CleanupDelay:        time.Hour,
        StaleFileAge:        24 * time.Hour,
        SweepInterval:       time.Hour,
        OracleBaseURL:       "https://api.openai.com/v1",
        OracleModel:         "gpt-4o",
        TranscriptionModel:  "whisper-1",
        OracleTimeout:       90 * time.Second,
        ResponseCacheTTL:    24 * time.Hour,
        VideoMaxFrames:      10,
        VideoFrameInterval:  2,
        VideoParallelFrames: 1,
        FaceCascadePath:     "cascade/facefinder",
        PuplocCascadePath:   "cascade/puploc",
    }
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var out int
        _, err := fmt.Sscanf(v, "%d", &out)
        if err == nil { return out }
    }
    return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
    if v := os.Getenv(key); v != "" {
        if d, err := time.ParseDuration(v); err == nil { return d }
    }
    return def
}

func parseDuration(v string, def time.Duration) time.Duration {
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

// Load reads .env (if present), then the YAML file at path (if present), then environment overrides.
// A missing oracle key is not fatal; it is reported so callers can decide.
func Load(path string) (Config, error) {
    _ = godotenv.Load()
    cfg := Default()

    if path == "" {
        path = os.Getenv("CONFIG_FILE")
    }
    if path != "" {
        raw, err := os.ReadFile(path)
        if err != nil && !os.IsNotExist(err) {
            return cfg, fmt.Errorf("read config file: %w", err)
        }
        if err == nil {
            if err := applyFile(&cfg, raw); err != nil {
                return cfg, err
            }
        }
    }

    cfg.Env = getenv("APP_ENV", cfg.Env)
    cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)
    cfg.MaxConnections = getenvInt("MAX_CONNECTIONS", cfg.MaxConnections)
    cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
    cfg.RedisURL = getenv("REDIS_URL", cfg.RedisURL)
    cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
    cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)
    cfg.UploadDir = getenv("UPLOAD_DIR", cfg.UploadDir)
    cfg.MaxUploadBytes = int64(getenvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
    cfg.AnalysisWorkers = getenvInt("ANALYSIS_WORKERS", cfg.AnalysisWorkers)
    cfg.CleanupDelay = getenvDuration("CLEANUP_DELAY", cfg.CleanupDelay)
    cfg.StaleFileAge = getenvDuration("STALE_FILE_AGE", cfg.StaleFileAge)
    cfg.SweepInterval = getenvDuration("SWEEP_INTERVAL", cfg.SweepInterval)
    cfg.OracleBaseURL = getenv("ORACLE_BASE_URL", cfg.OracleBaseURL)
    cfg.OracleAPIKey = getenv("OPENAI_API_KEY", cfg.OracleAPIKey)
    cfg.OracleModel = getenv("ORACLE_MODEL", cfg.OracleModel)
    cfg.OracleBackupModel = getenv("ORACLE_MODEL_BACKUP", cfg.OracleBackupModel)
    cfg.TranscriptionModel = getenv("ORACLE_TRANSCRIPTION_MODEL", cfg.TranscriptionModel)
    cfg.OracleTimeout = getenvDuration("ORACLE_TIMEOUT", cfg.OracleTimeout)
    cfg.ResponseCacheTTL = getenvDuration("RESPONSE_CACHE_TTL", cfg.ResponseCacheTTL)
    cfg.VideoMaxFrames = getenvInt("VIDEO_MAX_FRAMES", cfg.VideoMaxFrames)
    cfg.VideoFrameInterval = getenvInt("VIDEO_FRAME_INTERVAL", cfg.VideoFrameInterval)
    cfg.VideoParallelFrames = getenvInt("VIDEO_PARALLEL_FRAMES", cfg.VideoParallelFrames)
    cfg.FaceCascadePath = getenv("FACE_CASCADE_PATH", cfg.FaceCascadePath)
    cfg.PuplocCascadePath = getenv("PUPLOC_CASCADE_PATH", cfg.PuplocCascadePath)

    if cfg.OracleAPIKey == "" {
        return cfg, fmt.Errorf("OPENAI_API_KEY not set")
    }
    return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
    var f fileConfig
    if err := yaml.Unmarshal(raw, &f); err != nil {
        return fmt.Errorf("parse config file: %w", err)
    }
    if f.Server.ListenAddr != "" { cfg.ListenAddr = f.Server.ListenAddr }
    if f.Server.MaxConnections > 0 { cfg.MaxConnections = f.Server.MaxConnections }
    if f.Storage.UploadDir != "" { cfg.UploadDir = f.Storage.UploadDir }
    if f.Storage.MaxUploadBytes > 0 { cfg.MaxUploadBytes = f.Storage.MaxUploadBytes }
    cfg.CleanupDelay = parseDuration(f.Storage.CleanupDelay, cfg.CleanupDelay)
    cfg.StaleFileAge = parseDuration(f.Storage.StaleFileAge, cfg.StaleFileAge)
    cfg.SweepInterval = parseDuration(f.Storage.SweepInterval, cfg.SweepInterval)
    if f.Oracle.BaseURL != "" { cfg.OracleBaseURL = f.Oracle.BaseURL }
    if f.Oracle.Model != "" { cfg.OracleModel = f.Oracle.Model }
    if f.Oracle.BackupModel != "" { cfg.OracleBackupModel = f.Oracle.BackupModel }
    if f.Oracle.TranscriptionModel != "" { cfg.TranscriptionModel = f.Oracle.TranscriptionModel }
    cfg.OracleTimeout = parseDuration(f.Oracle.Timeout, cfg.OracleTimeout)
    if f.Video.MaxFrames > 0 { cfg.VideoMaxFrames = f.Video.MaxFrames }
    if f.Video.FrameInterval > 0 { cfg.VideoFrameInterval = f.Video.FrameInterval }
    if f.Video.ParallelFrames > 0 { cfg.VideoParallelFrames = f.Video.ParallelFrames }
    if f.Faces.Cascade != "" { cfg.FaceCascadePath = f.Faces.Cascade }
    if f.Faces.Puploc != "" { cfg.PuplocCascadePath = f.Faces.Puploc }
    if f.Workers > 0 { cfg.AnalysisWorkers = f.Workers }
    return nil
}
