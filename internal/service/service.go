// Package service implements the application logic behind the HTTP API.
package service

import (
	"context"

	"github.com/astrialabs/astrochat/config"
	"github.com/astrialabs/astrochat/internal/adapter/auth"
	"github.com/astrialabs/astrochat/internal/adapter/llm"
	"github.com/astrialabs/astrochat/internal/bridge"
	"github.com/astrialabs/astrochat/internal/repository"
	"github.com/astrialabs/astrochat/internal/session"
	"github.com/astrialabs/astrochat/policy"
)

type Service struct {
	repo         *repository.SQLiteRepository
	sessions     *session.Store
	bridge       *bridge.Bridge
	llmClient    llm.Client
	verifier     auth.Verifier
	config       *config.Config
	policyEngine *policy.Engine
}

func New(repo *repository.SQLiteRepository, sessions *session.Store, br *bridge.Bridge, llmClient llm.Client, verifier auth.Verifier, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		repo:         repo,
		sessions:     sessions,
		bridge:       br,
		llmClient:    llmClient,
		verifier:     verifier,
		config:       cfg,
		policyEngine: policyEngine,
	}
}

// Verifier exposes the identity verifier for the auth middleware.
func (s *Service) Verifier() auth.Verifier { return s.verifier }

// Ping reports whether the durable store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
