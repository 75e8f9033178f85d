// Package service wires the dataset store, session registry, tool catalog,
// planner and policy engine into the upload and query operations exposed
// over HTTP.
package service

import (
	"github.com/csvchat/csvchat/config"
	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/planner"
	"github.com/csvchat/csvchat/internal/session"
	"github.com/csvchat/csvchat/internal/tools"
	"github.com/csvchat/csvchat/policy"
	"github.com/csvchat/csvchat/store"
)

type Service struct {
	registry     *session.Registry
	parser       *dataset.Parser
	tools        *tools.Registry
	planner      planner.Planner
	policyEngine *policy.Engine
	store        store.Store
	config       *config.Config
}

func New(registry *session.Registry, toolReg *tools.Registry, p planner.Planner, policyEngine *policy.Engine, st store.Store, cfg *config.Config) *Service {
	return &Service{
		registry:     registry,
		parser:       dataset.NewParser(cfg.MaxUploadBytes),
		tools:        toolReg,
		planner:      p,
		policyEngine: policyEngine,
		store:        st,
		config:       cfg,
	}
}
