// Command test-server serves a local stand-in for the session API so volley
// can be pointed at http://localhost:8080 during development.
package main

import (
	"flag"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/volley/internal/fakeapi"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	createSvc := flag.String("create-service", "svc-create", "service id accepted by create")
	deleteSvc := flag.String("delete-service", "svc-delete", "service id accepted by delete")
	reject := flag.String("reject", "", "comma separated tokens answered with 401")
	latency := flag.Duration("latency", 0, "delay added to every response")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	opts := []fakeapi.Option{fakeapi.WithLatency(*latency)}
	if *reject != "" {
		opts = append(opts, fakeapi.WithRejectedTokens(strings.Split(*reject, ",")...))
	}
	api := fakeapi.New(*createSvc, *deleteSvc, opts...)

	server := &http.Server{
		Addr:              *addr,
		Handler:           api,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			c := api.Counts()
			logger.Info("calls",
				zap.Int64("creates", c.Creates),
				zap.Int64("announces", c.Announces),
				zap.Int64("deletes", c.Deletes),
				zap.Int64("unauthorized", c.Unauthorized))
		}
	}()

	logger.Info("starting test server", zap.String("addr", *addr))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
