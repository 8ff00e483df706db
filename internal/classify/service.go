// Package classify orchestrates one classification request: build the
// decision context, score it once, derive the verdict, and sign it once.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mbd888/watchdog/internal/attestation"
	"github.com/mbd888/watchdog/internal/logging"
	"github.com/mbd888/watchdog/internal/metrics"
	"github.com/mbd888/watchdog/internal/oracle"
	"github.com/mbd888/watchdog/internal/risk"
	"github.com/mbd888/watchdog/internal/traces"
	"github.com/mbd888/watchdog/internal/validation"
)

// DefaultSigningTimeout bounds the signing call when none is configured.
const DefaultSigningTimeout = 5 * time.Second

// ErrInvalidRequest is wrapped by every ValidationError.
var ErrInvalidRequest = errors.New("invalid request")

// ValidationError is a client error raised before any scoring or signing.
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.ReplaceAll(e.Err.Error(), "\n", "; ")
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidRequest, e.Err}
}

// Signer produces attestations over statements.
type Signer interface {
	Sign(ctx context.Context, st attestation.Statement) (string, error)
}

// Result is the signed verdict returned to callers.
type Result struct {
	Classification risk.Verdict `json:"classification"`
	RiskScore      int          `json:"riskScore"`
	Signature      string       `json:"signature"`
}

// Statement returns the tuple the signature in r binds for req.
func (r *Result) Statement(req risk.RawRequest) attestation.Statement {
	return attestation.Statement{
		TokenAddress:      req.TokenAddress,
		FunctionSignature: req.FunctionSignature,
		Classification:    string(r.Classification),
		RiskScore:         r.RiskScore,
	}
}

// Service classifies transactions. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	oracle         oracle.Oracle
	signer         Signer
	signingTimeout time.Duration
	logger         *slog.Logger
}

// NewService creates a classification service.
func NewService(o oracle.Oracle, s Signer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		oracle:         o,
		signer:         s,
		signingTimeout: DefaultSigningTimeout,
		logger:         logger,
	}
}

// WithSigningTimeout overrides the bound on the signing call.
func (s *Service) WithSigningTimeout(d time.Duration) *Service {
	if d > 0 {
		s.signingTimeout = d
	}
	return s
}

// Strategy returns the name of the active scoring strategy.
func (s *Service) Strategy() string {
	return s.oracle.Name()
}

// SignerAddress returns the attestation address when the signer exposes one.
func (s *Service) SignerAddress() (common.Address, bool) {
	a, ok := s.signer.(interface{ Address() common.Address })
	if !ok {
		return common.Address{}, false
	}
	return a.Address(), true
}

// Classify validates req, scores it once, and signs the verdict once.
// Validation failures return a *ValidationError before the oracle or signer
// is touched. Oracle failures are absorbed as score 0. Signing failures are
// returned as *attestation.SigningError.
func (s *Service) Classify(ctx context.Context, req risk.RawRequest) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "classify",
		traces.TokenAddress(req.TokenAddress),
		traces.FunctionSignature(req.FunctionSignature),
		traces.Strategy(s.oracle.Name()),
	)
	defer span.End()

	dc, err := s.buildContext(req)
	if err != nil {
		traces.RecordError(span, err)
		return nil, err
	}

	score := s.score(ctx, dc)
	verdict := risk.NewEngine(s.oracle.Threshold()).Classify(score)

	st := attestation.Statement{
		TokenAddress:      dc.TokenAddress,
		FunctionSignature: dc.FunctionSignature,
		Classification:    string(verdict),
		RiskScore:         int(score),
	}
	sig, err := s.sign(ctx, st)
	if err != nil {
		traces.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(traces.RiskScore(int(score)), traces.Classification(string(verdict)))
	metrics.ClassificationsTotal.WithLabelValues(s.oracle.Name(), string(verdict)).Inc()

	logging.L(ctx).Info("transaction classified",
		"token", dc.TokenAddress,
		"function", dc.FunctionSignature,
		"strategy", s.oracle.Name(),
		"score", int(score),
		"classification", string(verdict),
	)

	return &Result{
		Classification: verdict,
		RiskScore:      int(score),
		Signature:      sig,
	}, nil
}

// buildContext reports every problem with req at once: missing required
// fields first, then fields that fail the text rule.
func (s *Service) buildContext(req risk.RawRequest) (risk.DecisionContext, error) {
	var (
		fields []string
		causes []error
	)

	dc, err := risk.BuildContext(req)
	if err != nil {
		var mfe *risk.MissingFieldsError
		if errors.As(err, &mfe) {
			fields = append(fields, mfe.Fields...)
		}
		causes = append(causes, err)
	}

	if errs := validation.Check(validation.Text(validation.MaxStringLength),
		validation.Field{Name: "tokenAddress", Value: req.TokenAddress},
		validation.Field{Name: "functionSignature", Value: req.FunctionSignature},
		validation.Field{Name: "deployerReputation", Value: req.DeployerReputation},
		validation.Field{Name: "liquidityInfo", Value: req.LiquidityInfo},
		validation.Field{Name: "creationDate", Value: req.CreationDate},
		validation.Field{Name: "codeAnalysis", Value: req.CodeAnalysis},
		validation.Field{Name: "recentTxHistory", Value: req.RecentTxHistory},
	); len(errs) > 0 {
		fields = append(fields, errs.Fields()...)
		causes = append(causes, errs)
	}

	if len(causes) > 0 {
		return risk.DecisionContext{}, &ValidationError{Fields: fields, Err: errors.Join(causes...)}
	}
	return dc, nil
}

func (s *Service) score(ctx context.Context, dc risk.DecisionContext) risk.Score {
	ctx, span := traces.StartSpan(ctx, "oracle.score", traces.Strategy(s.oracle.Name()))
	defer span.End()

	start := time.Now()
	raw := s.oracle.Score(ctx, dc)
	metrics.OracleDuration.WithLabelValues(s.oracle.Name()).Observe(time.Since(start).Seconds())

	// Oracle output is untrusted even from our own strategies.
	score := risk.Clamp(int(raw))
	span.SetAttributes(traces.RiskScore(int(score)))
	return score
}

func (s *Service) sign(ctx context.Context, st attestation.Statement) (string, error) {
	ctx, span := traces.StartSpan(ctx, "attestation.sign")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.signingTimeout)
	defer cancel()

	sig, err := s.signer.Sign(ctx, st)
	if err == nil && strings.TrimSpace(sig) == "" {
		err = errors.New("signer returned an empty signature")
	}
	if err != nil {
		var se *attestation.SigningError
		if !errors.As(err, &se) {
			err = &attestation.SigningError{Op: "sign", Err: err}
		}
		metrics.SigningErrorsTotal.Inc()
		traces.RecordError(span, err)
		logging.L(ctx).Error("attestation signing failed",
			"token", st.TokenAddress,
			"classification", st.Classification,
			"error", err,
		)
		return "", err
	}
	return sig, nil
}
