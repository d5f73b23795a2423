package main

import (
    "context"
    "fmt"
    "log/slog"

    "github.com/jonboulle/clockwork"

    "deepscan/internal/adapters/facedetect"
    "deepscan/internal/adapters/ffmpeg"
    "deepscan/internal/adapters/memory"
    "deepscan/internal/adapters/oracle"
    pg "deepscan/internal/adapters/postgres"
    rediscache "deepscan/internal/adapters/redis"
    "deepscan/internal/adapters/storage"
    "deepscan/internal/config"
    "deepscan/internal/faces"
    "deepscan/internal/logging"
    "deepscan/internal/ports"
    "deepscan/internal/services/analysis"
    filesvc "deepscan/internal/services/files"
    "deepscan/internal/workers/cleanup"
)

// loadConfig reads configuration and installs the global logger. A missing oracle key is only a warning.
func loadConfig() config.Config {
    cfg, err := config.Load(rootFlags.configPath)
    logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
    if err != nil {
        slog.Warn("configuration incomplete", "err", err)
    }
    return cfg
}

type app struct {
    analysis  *analysis.Service
    files     *filesvc.Service
    sessions  *memory.SessionStore
    scheduler *cleanup.Scheduler
    closers   []func()
}

func (a *app) Close() {
    for i := len(a.closers) - 1; i >= 0; i-- {
        a.closers[i]()
    }
}

type buildOptions struct {
    // persistent selects Postgres and delayed cleanup when configured; off for one-shot CLI runs.
    persistent bool
    uploadDir  string
}

func build(ctx context.Context, cfg config.Config, opts buildOptions) (*app, error) {
    log := logging.New("main")
    a := &app{}

    var repo ports.MediaRepository = memory.NewMediaRepository()
    if opts.persistent && cfg.DatabaseURL != "" {
        db, err := pg.Connect(ctx, cfg.DatabaseURL, int32(cfg.MaxConnections/8))
        if err != nil {
            return nil, fmt.Errorf("db connect: %w", err)
        }
        a.closers = append(a.closers, db.Close)
        if err := db.Migrate(ctx); err != nil {
            a.Close()
            return nil, err
        }
        repo = db
        log.Info("metadata store: postgres")
    } else if opts.persistent {
        log.Warn("DATABASE_URL not set, metadata is kept in memory")
    }
    sessions := memory.NewSessionStore()

    dir := cfg.UploadDir
    if opts.uploadDir != "" {
        dir = opts.uploadDir
    }
    disk, err := storage.NewDisk(dir)
    if err != nil {
        a.Close()
        return nil, err
    }

    client := oracle.New(cfg.OracleBaseURL, cfg.OracleAPIKey, cfg.OracleModel, cfg.OracleBackupModel, cfg.TranscriptionModel, cfg.OracleTimeout)
    if cfg.RedisURL != "" {
        cache, err := rediscache.Open(ctx, cfg.RedisURL)
        if err != nil {
            log.Warn("response cache disabled", "err", err)
        } else {
            client.Cache, client.CacheTTL = cache, cfg.ResponseCacheTTL
            a.closers = append(a.closers, func() { _ = cache.Close() })
        }
    }

    var reconciler analysis.FaceReconciler
    set, err := facedetect.Load(cfg.FaceCascadePath, cfg.PuplocCascadePath)
    if err != nil {
        log.Warn("face detectors unavailable, relying on oracle regions", "err", err)
        reconciler = faces.New(nil, nil, nil)
    } else {
        reconciler = faces.New(set.Detectors())
    }

    deps := analysis.Dependencies{
        Files:               repo,
        Sessions:            sessions,
        Storage:             disk,
        Oracle:              client,
        Faces:               reconciler,
        Frames:              ffmpeg.New(),
        MaxUploadBytes:      cfg.MaxUploadBytes,
        VideoMaxFrames:      cfg.VideoMaxFrames,
        VideoFrameInterval:  cfg.VideoFrameInterval,
        VideoParallelFrames: cfg.VideoParallelFrames,
    }
    if opts.persistent {
        a.scheduler = cleanup.NewScheduler(disk, cfg.CleanupDelay, clockwork.NewRealClock())
        a.closers = append(a.closers, a.scheduler.Stop)
        deps.Cleanup = a.scheduler
    }
    a.analysis = analysis.New(deps)
    a.files = filesvc.New(repo, sessions)
    a.sessions = sessions
    return a, nil
}
