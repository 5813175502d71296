package service

import (
	"context"
	"fmt"

	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/domain/valueobject"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/logger"
)

// ReconcileRequest describes one (domain, sub-domain, record type) pass.
type ReconcileRequest struct {
	Domain      string
	SubDomain   string
	RecordType  entity.DNSRecordType
	Lines       []entity.Line
	TTL         int
	RecordCount int
}

func (r *ReconcileRequest) Validate() error {
	if err := entity.ValidateDomainName(r.Domain); err != nil {
		return err
	}
	if err := entity.ValidateSubDomain(r.SubDomain); err != nil {
		return err
	}
	if r.RecordType != entity.DNSRecordTypeA && r.RecordType != entity.DNSRecordTypeAAAA {
		return fmt.Errorf("%w: %s", domain.ErrInvalidType, r.RecordType)
	}
	if r.RecordCount < 1 {
		return fmt.Errorf("%w: record count must be positive, got %d", domain.ErrConfigValidateFail, r.RecordCount)
	}
	if r.TTL < 0 {
		return fmt.Errorf("%w: ttl must be non-negative", domain.ErrInvalidTTL)
	}
	return nil
}

type ReconcilerOption func(*Reconciler)

func WithRand(rng Rand) ReconcilerOption {
	return func(r *Reconciler) {
		r.rng = rng
	}
}

// WithDryRun makes the reconciler decide and log without writing.
func WithDryRun(dryRun bool) ReconcilerOption {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// Reconciler converges the records of each requested line toward a random
// sample of that line's candidate IPs.
type Reconciler struct {
	provider contract.DNSProvider
	rng      Rand
	dryRun   bool
}

func NewReconciler(provider contract.DNSProvider, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		provider: provider,
		rng:      globalRand{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile processes the request's lines in order. A failing line is
// recorded in the returned plan and does not stop the remaining lines; the
// returned error joins all line failures.
func (r *Reconciler) Reconcile(ctx context.Context, req ReconcileRequest, candidates entity.Candidates) (*valueobject.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, domain.WrapEntity("request", req.SubDomain+"."+req.Domain, err)
	}

	plan := valueobject.NewPlan()
	for _, line := range req.Lines {
		if err := ctx.Err(); err != nil {
			plan.AddFailure(valueobject.LineFailure{Domain: req.Domain, SubDomain: req.SubDomain, Line: string(line), Err: err})
			break
		}
		changes, err := r.reconcileLine(ctx, req, line, candidates)
		for _, ch := range changes {
			plan.AddChange(ch)
		}
		if err != nil {
			logger.FromContext(ctx).Error("line reconciliation failed",
				"domain", req.Domain, "sub_domain", req.SubDomain, "type", req.RecordType, "line", line, "error", err)
			plan.AddFailure(valueobject.LineFailure{
				Domain:    req.Domain,
				SubDomain: req.SubDomain,
				Line:      string(line),
				Err:       domain.WrapEntity("line", req.SubDomain+"."+req.Domain+"/"+string(line), err),
			})
		}
	}
	return plan, plan.Err()
}

func (r *Reconciler) reconcileLine(ctx context.Context, req ReconcileRequest, line entity.Line, candidates entity.Candidates) ([]*valueobject.Change, error) {
	log := logger.FromContext(ctx).With(
		"domain", req.Domain,
		"sub_domain", req.SubDomain,
		"type", req.RecordType,
		"line", line,
	)
	base := valueobject.NewChange(valueobject.ChangeTypeNoop, req.Domain, req.SubDomain, string(req.RecordType), string(line))

	pool, ok := candidates.For(line)
	if !ok {
		log.Warn("skipped line, no candidate ips")
		return []*valueobject.Change{base.WithReason("no candidate ips")}, nil
	}

	existing, err := r.provider.GetRecords(ctx, req.Domain, contract.RecordFilter{
		SubDomain: req.SubDomain,
		Type:      req.RecordType,
		Line:      line,
	})
	if err != nil {
		return nil, domain.WrapOp("get records", err)
	}

	if len(existing) == 0 {
		return r.createRecords(ctx, log, req, line, pool)
	}
	return r.updateRecords(ctx, log, req, line, pool, existing, base)
}

func (r *Reconciler) createRecords(ctx context.Context, log *logger.Logger, req ReconcileRequest, line entity.Line, pool []entity.CandidateIP) ([]*valueobject.Change, error) {
	picks, err := Sample(r.rng, pool, req.RecordCount)
	if err != nil {
		return nil, domain.WrapOp("sample candidates", err)
	}

	var changes []*valueobject.Change
	for _, pick := range picks {
		ch := valueobject.NewChange(valueobject.ChangeTypeCreate, req.Domain, req.SubDomain, string(req.RecordType), string(line)).
			WithValue(pick.IP)
		if r.dryRun {
			log.Info("would create record", "value", pick.IP)
			changes = append(changes, ch.WithReason("dry run"))
			continue
		}

		id, err := r.provider.CreateRecord(ctx, req.Domain, &entity.Record{
			SubDomain: req.SubDomain,
			Type:      req.RecordType,
			Value:     pick.IP,
			Line:      line,
			TTL:       req.TTL,
		})
		if err != nil {
			return changes, domain.WrapOp("create record", err)
		}
		log.Info("created record", "value", pick.IP, "record_id", id)
		changes = append(changes, ch.WithRecordID(id).WithApplied(true))
	}
	return changes, nil
}

// updateRecords pairs existing records with sampled candidates by position.
// Records or samples beyond the shorter side are left alone.
func (r *Reconciler) updateRecords(ctx context.Context, log *logger.Logger, req ReconcileRequest, line entity.Line, pool []entity.CandidateIP, existing []entity.Record, base *valueobject.Change) ([]*valueobject.Change, error) {
	picks, err := Sample(r.rng, pool, min(req.RecordCount, len(pool)))
	if err != nil {
		return nil, domain.WrapOp("sample candidates", err)
	}

	current := make(map[string]bool, len(existing))
	for _, rec := range existing {
		current[rec.Value] = true
	}

	var changes []*valueobject.Change
	for i := 0; i < min(len(existing), len(picks)); i++ {
		rec := existing[i]
		ip := picks[i].IP

		if current[ip] {
			log.Info("skipped record, value exists", "value", ip, "record_id", rec.ID)
			changes = append(changes, base.WithValue(ip).WithRecordID(rec.ID).WithReason("value exists"))
			continue
		}

		ch := valueobject.NewChange(valueobject.ChangeTypeUpdate, req.Domain, req.SubDomain, string(req.RecordType), string(line)).
			WithValue(ip).
			WithOldValue(rec.Value).
			WithRecordID(rec.ID)
		if r.dryRun {
			log.Info("would update record", "value", ip, "old_value", rec.Value, "record_id", rec.ID)
			changes = append(changes, ch.WithReason("dry run"))
			continue
		}

		updated := rec
		updated.SubDomain = req.SubDomain
		updated.Type = req.RecordType
		updated.Value = ip
		updated.Line = line
		ok, err := r.provider.UpdateRecord(ctx, req.Domain, rec.ID, &updated)
		if err != nil {
			return changes, domain.WrapOp("update record", err)
		}
		if !ok {
			return changes, fmt.Errorf("%w: record %s", domain.ErrRecordIDMismatch, rec.ID)
		}
		log.Info("updated record", "value", ip, "old_value", rec.Value, "record_id", rec.ID)
		changes = append(changes, ch.WithApplied(true))
	}
	return changes, nil
}
