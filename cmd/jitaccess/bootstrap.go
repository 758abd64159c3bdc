// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jitaccess/jitaccess/internal/catalog"
	"github.com/jitaccess/jitaccess/internal/config"
	"github.com/jitaccess/jitaccess/internal/deferral"
	"github.com/jitaccess/jitaccess/internal/environment"
	"github.com/jitaccess/jitaccess/internal/groupmapping"
	"github.com/jitaccess/jitaccess/internal/logging"
	"github.com/jitaccess/jitaccess/internal/provisioner"
	"github.com/jitaccess/jitaccess/internal/subject"
)

// subjectResolutionConcurrency bounds the fan-out Resolve uses when
// fetching membership details (spec §5).
const subjectResolutionConcurrency = 8

// app bundles the wiring every subcommand needs, built once from the
// process's configuration.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	loader   *environment.Loader
	catalog  *catalog.Catalog
	resolver *subject.Resolver
	prov     *provisioner.Provisioner
	backend  unconfiguredBackend
	signer   *deferral.JWTCodec
}

// newApp loads configuration, builds the structured logger, and wires
// every core package together. Commands that don't need the full
// catalog (validate-policy) build their own narrower pieces instead.
func newApp() (*app, error) {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: cfg.LogAddSource,
	})
	slog.SetDefault(logger)

	mapping := groupmapping.New(cfg.Domain)
	backend := unconfiguredBackend{}

	loader := environment.New(environment.NewFileSource(cfg.Environments), cfg.CacheTimeout(), logger)
	prov := provisioner.New(backend, backend, mapping, provisioner.NewMetrics(prometheus.DefaultRegisterer), logger)
	resolver := subject.New(backend, mapping, subjectResolutionConcurrency, logger)

	environments := make([]catalog.EnvironmentSummary, 0, len(cfg.Environments))
	for name := range cfg.Environments {
		environments = append(environments, catalog.EnvironmentSummary{Name: name})
	}
	cat := catalog.New(environments, loader, prov, backend.listGroups)

	signingKey := []byte(cfg.DeferralSigningKey)
	signer := deferral.NewJWTCodec(jwt.SigningMethodHS256, signingKey, signingKey, cfg.DeferralTokenValidity())

	return &app{
		cfg:      cfg,
		logger:   logger,
		loader:   loader,
		catalog:  cat,
		resolver: resolver,
		prov:     prov,
		backend:  backend,
		signer:   signer,
	}, nil
}
