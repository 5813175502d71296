package contract

import (
	"context"

	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
)

// RecordFilter narrows GetRecords. Empty fields match any value.
type RecordFilter struct {
	SubDomain string
	Type      entity.DNSRecordType
	Line      entity.Line
}

// DNSProvider is the capability set shared by every DNS provider adapter.
// Implementations page through provider results internally and resolve the
// Line of every call against their own line vocabulary.
type DNSProvider interface {
	Name() string
	ListDomains(ctx context.Context) ([]entity.Domain, error)
	GetRecords(ctx context.Context, domain string, filter RecordFilter) ([]entity.Record, error)
	CreateRecord(ctx context.Context, domain string, record *entity.Record) (string, error)
	// UpdateRecord reports false when the provider answers with a record id
	// other than recordID.
	UpdateRecord(ctx context.Context, domain string, recordID string, record *entity.Record) (bool, error)
	DeleteRecord(ctx context.Context, domain string, recordID string) (bool, error)
	DeleteSubDomainRecords(ctx context.Context, domain string, subDomain string) (bool, error)
	ResolveLine(ctx context.Context, domain string, line entity.Line) (string, error)
}

// LineInfo is one line a provider accepts for a domain.
type LineInfo struct {
	ID    string
	Name  string
	Label string
}

// LineLister is implemented by providers that can enumerate their lines.
type LineLister interface {
	ListLines(ctx context.Context, domain string) ([]LineInfo, error)
}
