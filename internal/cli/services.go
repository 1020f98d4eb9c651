package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/config"
	"media-catalog/internal/facedetect"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/ingest"
	"media-catalog/internal/logging"
	"media-catalog/internal/media"
	"media-catalog/internal/memory"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metrics"
	"media-catalog/internal/video"
)

// statsInterval is how often catalog gauges are refreshed.
const statsInterval = 30 * time.Second

// pipeline holds everything an import needs, in start order.
type pipeline struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	memory    *memory.Monitor
	collector *metrics.Collector
	server    *http.Server
	importer  *ingest.Importer
}

func openCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	start := time.Now()
	cat, err := catalog.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	config.LogCatalogInit(cfg.DatabasePath, time.Since(start))
	return cat, nil
}

// newExtractor wires the metadata reader to the external decoders.
func newExtractor(tools *video.Tools, dev *media.RawDeveloper) *metadata.Extractor {
	var rawDims metadata.RawDimensionsFunc
	if dev.Available() {
		rawDims = dev.Dimensions
	}
	return metadata.NewExtractor(tools, rawDims, nil)
}

func newDetector(cfg *config.Config) facedetect.Detector {
	fields := strings.Fields(cfg.DetectorCmd)
	if len(fields) == 0 {
		return facedetect.None
	}
	backend := &facedetect.ExecBackend{Command: fields[0], Args: fields[1:]}
	return facedetect.Instrument(facedetect.Limit(facedetect.NewMTCNN(backend), cfg.DetectorConcurrency))
}

func startPipeline(ctx context.Context, cfg *config.Config, onResult func(ingest.Result)) (*pipeline, error) {
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips initialization failed: %v", err)
	}
	tools := video.New(cfg.FFprobePath, cfg.FFmpegPath)
	dev := media.NewRawDeveloper(cfg.RawDeveloper)
	config.LogToolsInit(media.IsVipsAvailable(), tools.Available(), dev.Available(), cfg.DetectorCmd)

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"dest":     cfg.DestDir,
		"database": cfg.DatabaseDir,
	}))

	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		media.ShutdownVips()
		return nil, err
	}

	p := &pipeline{cfg: cfg, catalog: cat}

	memCfg := memory.DefaultConfig()
	memCfg.MemoryLimitBytes = cfg.MemoryLimit
	p.memory = memory.NewMonitor(memCfg)
	p.memory.Start()

	metrics.InitializeMetrics()
	metrics.SetAppInfo(config.Version, config.Commit, config.GoVersion)
	p.collector = metrics.NewCollector(cat, statsInterval)
	p.collector.Start()

	if cfg.MetricsAddr != "" {
		p.server = startMetricsServer(cfg.MetricsAddr, cat)
	}

	p.importer = ingest.New(cat, ingest.Options{
		DestDir:     cfg.DestDir,
		Workers:     cfg.Workers,
		CPUWorkers:  cfg.CPUWorkers,
		FileTimeout: cfg.FileTimeout,
		Detector:    newDetector(cfg),
		Metadata:    newExtractor(tools, dev),
		Frames:      tools,
		Raw:         dev,
		Memory:      p.memory,
		OnResult:    onResult,
	})
	return p, nil
}

// Close stops the pipeline in reverse start order.
func (p *pipeline) Close() {
	p.importer.Close()
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.server.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
		cancel()
	}
	p.collector.Stop()
	p.memory.Stop()
	if err := p.catalog.Close(); err != nil {
		logging.Warn("failed to close catalog: %v", err)
	}
	media.ShutdownVips()
}

// recordRun stores the completion time of a batch.
func (p *pipeline) recordRun(ctx context.Context) {
	if err := p.catalog.SetLastImportRun(ctx, time.Now()); err != nil {
		logging.Warn("failed to record import run: %v", err)
	}
}
