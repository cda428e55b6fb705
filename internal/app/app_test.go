package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe(t *testing.T) {
	logger := httplog.NewLogger(serviceName, httplog.Options{Writer: io.Discard})

	t.Run("in-flight request survives shutdown", func(t *testing.T) {
		started := make(chan struct{})
		reqErr := make(chan error, 1)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			time.Sleep(200 * time.Millisecond)
			reqErr <- r.Context().Err()
			w.Write([]byte("ok"))
		})

		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		server := &http.Server{Handler: handler}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- serve(ctx, logger, server, func() error {
				return server.Serve(l)
			})
		}()

		type result struct {
			status int
			body   string
			err    error
		}
		respCh := make(chan result, 1)
		go func() {
			resp, err := http.Get("http://" + l.Addr().String())
			if err != nil {
				respCh <- result{err: err}
				return
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			respCh <- result{status: resp.StatusCode, body: string(body), err: err}
		}()

		<-started
		cancel()

		res := <-respCh
		require.NoError(t, res.err)
		assert.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, "ok", res.body)
		assert.NoError(t, <-reqErr)
		assert.NoError(t, <-done)
	})

	t.Run("listen error", func(t *testing.T) {
		wantErr := errors.New("address in use")
		server := &http.Server{}

		err := serve(context.Background(), logger, server, func() error {
			return wantErr
		})

		assert.ErrorIs(t, err, wantErr)
	})
}
