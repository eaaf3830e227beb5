// Command fbsupervisord runs the supervisor half of firebuild: it listens
// on the AF_UNIX control socket the interceptor connects to, drives the
// dispatch loop that demultiplexes socket and shmq traffic from every
// observed process, and replies with acks, shortcut decisions and fresh
// pipe/popen fds. The fingerprint/cache engine that actually decides
// shortcuts is a collaborator this binary wires up but does not
// implement; until one exists, NoopEngine runs the build through in full
// every time.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/firebuild-go/fbcore/internal/logging"
	"github.com/firebuild-go/fbcore/internal/sidechannel"
	"github.com/firebuild-go/fbcore/internal/supervisor"
)

func main() {
	var (
		socket  = flag.String("socket", "", "path prefix of the control socket pool; interceptors connect to <socket>0 (required)")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *socket == "" {
		log.Fatal("fbsupervisord: -socket is required")
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	socketPath := *socket + "0"
	listener, err := sidechannel.Listen(socketPath)
	if err != nil {
		logger.Error("failed to listen on control socket", "path", socketPath, "error", err)
		os.Exit(1)
	}
	defer listener.Close()
	logger.Info("listening", "socket", socketPath)

	ring, err := supervisor.NewRing()
	if err != nil {
		logger.Error("failed to create polling ring", "error", err)
		os.Exit(1)
	}

	dispatcher, err := supervisor.NewDispatcher(listener, ring, supervisor.NoopEngine{})
	if err != nil {
		logger.Error("failed to create dispatcher", "error", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stopped := false
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		stopped = true
	}()

	const pollTimeoutMs = 250
	if err := dispatcher.Run(pollTimeoutMs, func() bool { return stopped }); err != nil {
		logger.Error("dispatch loop exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down cleanly")
}
