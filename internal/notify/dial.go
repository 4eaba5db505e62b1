// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DialTimeout bounds how long Dial waits for the connection.
const DialTimeout = 15 * time.Second

// Dial connects a socket.io client over WebSocket and waits until the
// server accepts it.
func Dial(ctx context.Context, cfg *config.Notify) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("component", "notify", "url", cfg.URL)
	logger.Debug("Connecting to progress endpoint...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(cfg.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	// Only the first connect or connect_error outcome is delivered.
	connectChan := make(chan error, 1)
	report := func(err error) {
		select {
		case connectChan <- err:
		default:
		}
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to progress endpoint.", "sid", io.Id())
		report(nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		report(err)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(DialTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", DialTimeout)
	}
}
