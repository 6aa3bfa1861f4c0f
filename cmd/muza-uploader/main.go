// Command muza-uploader runs the Muza ingestion service: it accepts audio
// uploads, extracts and enriches their metadata, stores artifacts, and
// registers tracks against the Muza catalog server.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/shanidan92/muza-metadata-server/internal/artifacts"
	"github.com/shanidan92/muza-metadata-server/internal/catalog"
	"github.com/shanidan92/muza-metadata-server/internal/config"
	"github.com/shanidan92/muza-metadata-server/internal/enrich"
	"github.com/shanidan92/muza-metadata-server/internal/logger"
	"github.com/shanidan92/muza-metadata-server/internal/metadata"
	"github.com/shanidan92/muza-metadata-server/internal/musicbrainz"
	"github.com/shanidan92/muza-metadata-server/internal/pipeline"
	"github.com/shanidan92/muza-metadata-server/internal/server"
	"github.com/shanidan92/muza-metadata-server/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)

	var object *artifacts.ObjectStore
	if cfg.Storage.ObjectStoreEnabled() {
		object, err = artifacts.NewObjectStore(cfg.Storage)
		if err != nil {
			log.Error("object storage initialization failed", "error", err)
			os.Exit(1)
		}
		log.Info("object storage enabled", "endpoint", cfg.Storage.Endpoint)
	}

	store, err := artifacts.NewStore(cfg.Storage, object, log)
	if err != nil {
		log.Error("artifact store initialization failed", "error", err)
		os.Exit(1)
	}

	mbClient := musicbrainz.NewClient(cfg.MusicBrainz, log)
	extractor := metadata.NewExtractor(store, log)
	merger := enrich.NewMerger(mbClient, store, log)
	catalogClient := catalog.NewClient(cfg.Catalog, log)
	pipe := pipeline.New(store, extractor, merger, catalogClient, log)

	if cfg.Watcher.Dir != "" {
		w := watcher.New(cfg.Watcher, cfg.Server.BaseURL, pipe, log)
		go func() {
			if err := w.Run(context.Background()); err != nil && err != context.Canceled {
				log.Error("watcher stopped", "error", err)
			}
		}()
	}

	srv := server.New(cfg.Server, pipe, store, log)
	if err := srv.Run(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
