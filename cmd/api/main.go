package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/databunker/pricewatch/internal/blob"
	"github.com/databunker/pricewatch/internal/config"
	"github.com/databunker/pricewatch/internal/env"
	"github.com/databunker/pricewatch/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := apiConfig{
		addr: env.GetString("ADDR", ":8080"),
	}
	pipelineCfg := config.FromEnv()
	appLogger := logger.New(logger.ParseLevel(env.GetString("LOG_LEVEL", "INFO")))

	ctx := context.Background()
	blobs, cleanup, err := newBlobStore(ctx, pipelineCfg)
	if err != nil {
		log.Panic(err)
	}
	defer cleanup()

	app := &application{
		config:    cfg,
		pipeline:  pipelineCfg,
		blobs:     blobs,
		appLogger: appLogger,
	}

	mux := app.mount()

	log.Fatal(app.run(mux))
}

func newBlobStore(ctx context.Context, cfg config.Config) (blob.Store, func(), error) {
	if env.GetString("BLOB_BACKEND", "gcs") == "fs" {
		fsStore, err := blob.NewFSStore(env.GetString("BLOB_ROOT", "tmp/blobs"))
		return fsStore, func() {}, err
	}
	gcsStore, err := blob.NewGCSStore(ctx, cfg.Bucket)
	if err != nil {
		return nil, nil, err
	}
	return gcsStore, func() { _ = gcsStore.Close() }, nil
}
