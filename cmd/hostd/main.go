// hostd is the native messaging host a browser launches per profile. It
// speaks the length-prefixed frame protocol with the extension on
// stdin/stdout and relays tab state to the local coordination server.
package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/hushd/hushd/internal/browser"
	"github.com/hushd/hushd/internal/coord"
)

func main() {
	// The browser appends its own positional arguments (extension origin,
	// parent window handle); flag.Parse leaves those alone.
	addr := flag.String("addr", "127.0.0.1:43117", "coordination server address")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var session *browser.Session
	client := coord.NewClient(logger, *addr, func(d coord.Directive) {
		session.ApplyDirective(d)
	})
	session = browser.NewSession(logger, os.Stdin, os.Stdout, client)

	go client.Run(ctx)

	if err := session.Run(); err != nil {
		logger.Error("Extension session failed", zap.Error(err))
		os.Exit(1)
	}
}

// newLogger builds a logger writing to stderr only; stdout carries the
// extension protocol.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
