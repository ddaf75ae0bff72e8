// Command siftd runs the capture agent in the foreground until interrupted.
// An optional URL argument points it at a page to observe; without one it
// idles, draining any persisted queue backlog.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"sift/internal/agent"
	"sift/internal/config"
	"sift/internal/logging"
	"sift/internal/page"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	observer, err := buildObserver(ctx, cfg, os.Args[1:])
	if err != nil {
		logger.Error("build observer", logging.Error(err))
		os.Exit(1)
	}

	a, err := agent.New(ctx, cfg, observer, logger)
	if err != nil {
		logger.Error("create agent", logging.Error(err))
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	if err := a.Start(ctx); err != nil {
		logger.Error("start agent", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("siftd shutting down")
	a.Stop()
}

func buildObserver(ctx context.Context, cfg *config.Config, args []string) (page.Observer, error) {
	url := ""
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		url = arg
		break
	}
	if url == "" {
		return page.NewStaticObserver(nil), nil
	}

	client := &http.Client{Timeout: time.Duration(cfg.Collector.TimeoutSeconds) * time.Second}
	doc, err := page.FetchDocument(ctx, client, url)
	if err != nil {
		return nil, err
	}
	return page.NewStaticObserver(doc), nil
}
