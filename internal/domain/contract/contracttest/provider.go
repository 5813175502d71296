// Package contracttest provides an in-memory DNSProvider for tests.
package contracttest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
)

// Provider keeps records per domain and counts every call. Set the *Err
// fields to make the matching call fail.
type Provider struct {
	ProviderName string
	Domains      []entity.Domain
	Records      map[string][]entity.Record
	Lines        []entity.Line

	GetErr    error
	CreateErr error
	UpdateErr error
	// FailLine makes GetRecords fail only for that line.
	FailLine entity.Line
	// MismatchIDs makes UpdateRecord report a foreign record id.
	MismatchIDs bool

	GetCalls    int
	CreateCalls int
	UpdateCalls int
	DeleteCalls int

	nextID int
}

var (
	_ contract.DNSProvider = (*Provider)(nil)
	_ contract.LineLister  = (*Provider)(nil)
)

func New() *Provider {
	return &Provider{
		ProviderName: "fake",
		Records:      make(map[string][]entity.Record),
		Lines:        entity.AllLines(),
	}
}

// Seed appends records to domain, assigning ids where missing.
func (p *Provider) Seed(domainName string, records ...entity.Record) {
	for _, r := range records {
		if r.ID == "" {
			r.ID = p.newID()
		}
		p.Records[domainName] = append(p.Records[domainName], r)
	}
}

// MutatingCalls is the number of create, update and delete calls so far.
func (p *Provider) MutatingCalls() int {
	return p.CreateCalls + p.UpdateCalls + p.DeleteCalls
}

func (p *Provider) ResetCalls() {
	p.GetCalls, p.CreateCalls, p.UpdateCalls, p.DeleteCalls = 0, 0, 0, 0
}

func (p *Provider) newID() string {
	p.nextID++
	return strconv.Itoa(1000 + p.nextID)
}

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) ListDomains(ctx context.Context) ([]entity.Domain, error) {
	return p.Domains, nil
}

func (p *Provider) ResolveLine(ctx context.Context, domainName string, line entity.Line) (string, error) {
	for _, l := range p.Lines {
		if l == line {
			return string(line), nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrInvalidLine, line)
}

func (p *Provider) GetRecords(ctx context.Context, domainName string, filter contract.RecordFilter) ([]entity.Record, error) {
	p.GetCalls++
	if p.GetErr != nil {
		return nil, p.GetErr
	}
	if filter.Line != "" {
		if p.FailLine == filter.Line {
			return nil, fmt.Errorf("%w: forced failure for %s", domain.ErrDNSError, filter.Line)
		}
		if _, err := p.ResolveLine(ctx, domainName, filter.Line); err != nil {
			return nil, err
		}
	}
	var out []entity.Record
	for _, r := range p.Records[domainName] {
		if filter.SubDomain != "" && r.SubDomain != filter.SubDomain {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if filter.Line != "" && r.Line != filter.Line {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *Provider) CreateRecord(ctx context.Context, domainName string, record *entity.Record) (string, error) {
	p.CreateCalls++
	if p.CreateErr != nil {
		return "", p.CreateErr
	}
	if _, err := p.ResolveLine(ctx, domainName, record.Line); err != nil {
		return "", err
	}
	r := *record
	r.ID = p.newID()
	p.Records[domainName] = append(p.Records[domainName], r)
	return r.ID, nil
}

func (p *Provider) UpdateRecord(ctx context.Context, domainName string, recordID string, record *entity.Record) (bool, error) {
	p.UpdateCalls++
	if p.UpdateErr != nil {
		return false, p.UpdateErr
	}
	records := p.Records[domainName]
	for i := range records {
		if records[i].ID != recordID {
			continue
		}
		r := *record
		r.ID = recordID
		records[i] = r
		return !p.MismatchIDs, nil
	}
	return false, fmt.Errorf("%w: %s", domain.ErrDNSRecordNotFound, recordID)
}

func (p *Provider) DeleteRecord(ctx context.Context, domainName string, recordID string) (bool, error) {
	p.DeleteCalls++
	records := p.Records[domainName]
	for i := range records {
		if records[i].ID == recordID {
			p.Records[domainName] = append(records[:i], records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (p *Provider) DeleteSubDomainRecords(ctx context.Context, domainName string, subDomain string) (bool, error) {
	p.DeleteCalls++
	var kept []entity.Record
	for _, r := range p.Records[domainName] {
		if r.SubDomain != subDomain {
			kept = append(kept, r)
		}
	}
	p.Records[domainName] = kept
	return true, nil
}

// Values returns the record values for one (sub-domain, type, line).
func (p *Provider) Values(domainName, subDomain string, recordType entity.DNSRecordType, line entity.Line) []string {
	var out []string
	for _, r := range p.Records[domainName] {
		if r.SubDomain == subDomain && r.Type == recordType && r.Line == line {
			out = append(out, r.Value)
		}
	}
	return out
}

func (p *Provider) ListLines(ctx context.Context, domainName string) ([]contract.LineInfo, error) {
	out := make([]contract.LineInfo, 0, len(p.Lines))
	for _, l := range p.Lines {
		out = append(out, contract.LineInfo{ID: l.Token(), Name: string(l), Label: l.Label()})
	}
	return out, nil
}
