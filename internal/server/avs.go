package server

import (
	"context"
	"fmt"

	"github.com/mbd888/watchdog/internal/attestation"
	"github.com/mbd888/watchdog/internal/circuitbreaker"
	"github.com/mbd888/watchdog/internal/classify"
	"github.com/mbd888/watchdog/internal/config"
	"github.com/mbd888/watchdog/internal/oracle"
)

// NewAVS creates the risk classification and attestation server.
func NewAVS(cfg *config.Config, opts ...Option) (*Server, error) {
	s := newServer(cfg, "avs", cfg.AVSPort, opts)

	if s.signer == nil {
		signer, err := attestation.NewSigner(attestation.Config{PrivateKeyHex: cfg.PrivateKey})
		if err != nil {
			return nil, fmt.Errorf("failed to load attestation key: %w", err)
		}
		s.signer = signer
	}

	if s.oracle == nil {
		o, err := oracle.New(context.Background(), cfg, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create scoring oracle: %w", err)
		}
		s.oracle = o
	}

	s.classify = classify.NewService(s.oracle, s.signer, s.logger).
		WithSigningTimeout(cfg.SigningTimeout)

	handler := classify.NewHandler(s.classify)
	handler.RegisterRoutes(s.router)
	handler.RegisterRoutes(s.router.Group("/v1"))

	s.health.Register("oracle", func(ctx context.Context) (string, error) {
		detail := fmt.Sprintf("%s strategy, MALICIOUS above %d", s.oracle.Name(), s.oracle.Threshold())
		if cs, ok := s.oracle.(interface {
			CircuitState() (circuitbreaker.State, bool)
		}); ok {
			// An open circuit still answers every request, with score 0.
			if state, ok := cs.CircuitState(); ok && state != circuitbreaker.StateClosed {
				detail += ", model circuit " + state.String()
			}
		}
		return detail, nil
	})
	s.health.Register("signer", func(ctx context.Context) (string, error) {
		addr, ok := s.classify.SignerAddress()
		if !ok {
			return "external signer", nil
		}
		return addr.Hex(), nil
	})

	if addr, ok := s.classify.SignerAddress(); ok {
		s.logger.Info("attestation signer loaded", "address", addr.Hex(), "strategy", s.oracle.Name())
	}

	return s, nil
}
