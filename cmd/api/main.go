package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandeepkv93/secure-credential-service/internal/di"
)

func main() {
	a, err := di.InitializeApp()
	if err != nil {
		log.Fatal(err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.ListenAndServe() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		a.Logger.Info("shutdown requested", "signal", s.String())
	case err := <-serveErr:
		if err != nil {
			a.Logger.Error("http server failed", "error", err)
		}
	}
	a.Shutdown(context.Background())
}
