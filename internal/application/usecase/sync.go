package usecase

import (
	"context"

	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/domain/service"
	"github.com/lite-lake/infra-cfdns/internal/domain/valueobject"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/logger"
)

type SyncConfig struct {
	Provider    contract.DNSProvider
	Candidates  contract.CandidateSource
	Target      *entity.Target
	Versions    []entity.IPVersion
	RecordCount int
	TTL         int
	Scope       *valueobject.Scope
	DryRun      bool
	Rand        service.Rand
}

// VersionOutcome reports how one IP version went. Skipped versions had no
// usable recommendation.
type VersionOutcome struct {
	Version    entity.IPVersion
	Candidates int
	Skipped    bool
	Err        error
}

type SyncResult struct {
	Plan     *valueobject.Plan
	Versions []VersionOutcome
}

// Err joins the line failures. Skipped versions are not errors.
func (r *SyncResult) Err() error {
	return r.Plan.Err()
}

// SyncUseCase runs one reconciliation pass: for each requested IP version it
// fetches the recommendation once, then reconciles every (domain, sub-domain)
// of the target in document order.
type SyncUseCase struct {
	cfg        *SyncConfig
	reconciler *service.Reconciler
}

func NewSyncUseCase(cfg *SyncConfig) *SyncUseCase {
	opts := []service.ReconcilerOption{service.WithDryRun(cfg.DryRun)}
	if cfg.Rand != nil {
		opts = append(opts, service.WithRand(cfg.Rand))
	}
	if cfg.Scope == nil {
		cfg.Scope = valueobject.NewScope()
	}
	return &SyncUseCase{
		cfg:        cfg,
		reconciler: service.NewReconciler(cfg.Provider, opts...),
	}
}

func (u *SyncUseCase) Run(ctx context.Context) *SyncResult {
	ctx = logger.WithOperation(ctx, "sync")
	log := logger.FromContext(ctx)
	result := &SyncResult{Plan: valueobject.NewPlan()}

	log.Info("starting sync",
		"provider", u.cfg.Provider.Name(),
		"pairs", u.cfg.Target.Pairs(),
		"scope", u.cfg.Scope.String(),
		"record_count", u.cfg.RecordCount,
		"dry_run", u.cfg.DryRun)

	for _, version := range u.cfg.Versions {
		if err := ctx.Err(); err != nil {
			result.Plan.AddFailure(valueobject.LineFailure{Err: err})
			break
		}
		vctx := logger.WithContextFields(ctx, "ip_version", version)
		outcome := u.runVersion(vctx, version, result.Plan)
		result.Versions = append(result.Versions, outcome)
	}

	log.Info("sync finished",
		"creates", result.Plan.Count(valueobject.ChangeTypeCreate),
		"updates", result.Plan.Count(valueobject.ChangeTypeUpdate),
		"failures", len(result.Plan.Failures()))
	return result
}

func (u *SyncUseCase) runVersion(ctx context.Context, version entity.IPVersion, plan *valueobject.Plan) VersionOutcome {
	log := logger.FromContext(ctx)
	outcome := VersionOutcome{Version: version}

	candidates, err := u.cfg.Candidates.FetchCandidates(ctx, version)
	if err != nil {
		log.Warn("skipped ip version, no recommendation", "error", err)
		outcome.Skipped = true
		outcome.Err = err
		return outcome
	}
	outcome.Candidates = candidates.Total()
	log.Info("fetched optimization ips", "candidates", outcome.Candidates)

	for _, d := range u.cfg.Target.Domains {
		if !u.cfg.Scope.MatchesDomain(d.Name) {
			continue
		}
		for _, sub := range d.SubDomains {
			if !u.cfg.Scope.Matches(d.Name, sub.Name) {
				continue
			}
			if err := ctx.Err(); err != nil {
				plan.AddFailure(valueobject.LineFailure{Domain: d.Name, SubDomain: sub.Name, Err: err})
				return outcome
			}
			req := service.ReconcileRequest{
				Domain:      d.Name,
				SubDomain:   sub.Name,
				RecordType:  version.RecordType(),
				Lines:       sub.Lines,
				TTL:         u.cfg.TTL,
				RecordCount: u.cfg.RecordCount,
			}
			subPlan, err := u.reconciler.Reconcile(ctx, req, candidates)
			if subPlan == nil {
				plan.AddFailure(valueobject.LineFailure{Domain: d.Name, SubDomain: sub.Name, Err: err})
				continue
			}
			plan.Merge(subPlan)
		}
	}
	return outcome
}
