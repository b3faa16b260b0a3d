package main

import (
	"context"
	"fmt"
	"io"

	"github.com/aiot-hub/aiot/backend/go-client/internal/api"
	"github.com/aiot-hub/aiot/backend/go-client/internal/apiclient"
	"github.com/aiot-hub/aiot/backend/go-client/internal/auth"
	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	"github.com/aiot-hub/aiot/backend/go-client/internal/i18n"
	"github.com/aiot-hub/aiot/backend/go-client/internal/session"
	"github.com/aiot-hub/aiot/backend/go-client/internal/storage"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
)

// app holds the per-invocation wiring shared by the online commands.
type app struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer

	client *apiclient.Client
	auth   *auth.Service
	api    *api.API
}

func (a *app) connect(ctx context.Context) (func(), error) {
	store, closeFn, err := storage.Open(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(ctx, store)
	if err != nil {
		closeFn()
		return nil, err
	}
	c, err := apiclient.New(a.cfg.API.BaseURL, sess,
		apiclient.WithTimeout(a.cfg.API.Timeout),
		apiclient.WithRateLimit(a.cfg.API.RateLimitRPS, a.cfg.API.RateLimitBurst),
		apiclient.WithUserAgent("aiot-cli"),
	)
	if err != nil {
		closeFn()
		return nil, err
	}
	a.client = c
	a.auth = auth.NewService(c, auth.NavigatorFunc(func() {
		logger.Debugf("navigate: home")
	}), i18n.New(a.cfg.API.Locale))
	a.api = api.New(c)
	return closeFn, nil
}

func (a *app) printf(format string, v ...interface{}) {
	fmt.Fprintf(a.stdout, format, v...)
}
