package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/pkg/config"
	"github.com/wonny/finsight/pkg/logger"
)

func serverConfig() *config.Config {
	return &config.Config{
		Port: "0",
		Env:  "development",
		Server: config.ServerConfig{
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    3 * time.Minute,
			IdleTimeout:     30 * time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
	}
}

func TestNewServerUsesConfiguredTimeouts(t *testing.T) {
	s := New(serverConfig(), logger.Nop(), http.NotFoundHandler())

	assert.Equal(t, ":0", s.httpServer.Addr)
	assert.Equal(t, 5*time.Second, s.httpServer.ReadTimeout)
	assert.Equal(t, 3*time.Minute, s.httpServer.WriteTimeout)
	assert.Equal(t, 30*time.Second, s.httpServer.IdleTimeout)
	assert.Equal(t, 2*time.Second, s.shutdownTimeout)

	cfg := serverConfig()
	cfg.Server.ShutdownTimeout = 0
	assert.Equal(t, 30*time.Second, New(cfg, logger.Nop(), http.NotFoundHandler()).shutdownTimeout)
}

func TestServeDrainsInFlightRequest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		io.WriteString(w, "done")
	})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(serverConfig(), logger.Nop(), handler)

	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, l) }()

	body := make(chan string, 1)
	go func() {
		resp, err := http.Get("http://" + l.Addr().String() + "/slow")
		if err != nil {
			body <- err.Error()
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body <- string(b)
	}()

	<-started
	cancel()
	close(release)

	assert.Equal(t, "done", <-body)
	assert.NoError(t, <-served)
}
