// Package server provides HTTP server setup and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetLogger replaces the package-level logger.
func SetLogger(l *logrus.Logger) { log = l }

// ListenAddr joins the bind IP with a listen address that may be a bare port.
func ListenAddr(bindIP, listen string) string {
	if _, _, err := net.SplitHostPort(listen); err == nil {
		return listen
	}
	return net.JoinHostPort(bindIP, listen)
}

// New creates a configured HTTP server.
func New(addr string, handler http.Handler, readTimeout, writeTimeout, idleTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

// Start serves until the server is shut down. A graceful shutdown is not an error.
func Start(srv *http.Server) error {
	log.Infof("Starting mimedb on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops srv within timeout and then runs cleanupFn.
func Shutdown(srv *http.Server, timeout time.Duration, cleanupFn func()) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	} else {
		log.Info("Server shutdown completed")
	}

	if cleanupFn != nil {
		cleanupFn()
	}
}

// SetupGracefulShutdown shuts srv down on SIGINT/SIGTERM. The returned channel
// is closed once shutdown and cleanup have finished.
func SetupGracefulShutdown(srv *http.Server, timeout time.Duration, cancel context.CancelFunc, cleanupFn func()) <-chan struct{} {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-sigChan
		signal.Stop(sigChan)
		log.Infof("Received signal %v, initiating graceful shutdown...", sig)

		if cancel != nil {
			cancel()
		}
		Shutdown(srv, timeout, cleanupFn)
	}()
	return done
}

// PrintStartupBanner prints the server startup banner.
func PrintStartupBanner(version string, listenAddr string, types int) {
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║         mimedb                               ║")
	fmt.Printf("║         Version: %-28s║\n", version)
	fmt.Printf("║         Listen:  %-28s║\n", listenAddr)
	fmt.Printf("║         Types:   %-28d║\n", types)
	fmt.Println("╚══════════════════════════════════════════════╝")
}
