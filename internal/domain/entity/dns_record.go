package entity

import (
	"fmt"
	"net"
	"time"

	"github.com/lite-lake/infra-cfdns/internal/domain"
)

type DNSRecordType string

const (
	DNSRecordTypeA    DNSRecordType = "A"
	DNSRecordTypeAAAA DNSRecordType = "AAAA"
)

// Record is one address record as reported by a provider. Line holds the
// shared taxonomy value when the provider's line maps onto it, otherwise the
// provider's native line name.
type Record struct {
	ID        string
	SubDomain string
	Type      DNSRecordType
	Value     string
	Line      Line
	TTL       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Record) Validate() error {
	if r.Type != DNSRecordTypeA && r.Type != DNSRecordTypeAAAA {
		return fmt.Errorf("%w: dns record type %s", domain.ErrInvalidType, r.Type)
	}
	if r.SubDomain == "" {
		return domain.RequiredField("sub_domain")
	}
	if r.Value == "" {
		return domain.RequiredField("value")
	}
	ip := net.ParseIP(r.Value)
	if ip == nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidIP, r.Value)
	}
	if (ip.To4() != nil) != (r.Type == DNSRecordTypeA) {
		return fmt.Errorf("%w: %s is not valid for %s record", domain.ErrInvalidIP, r.Value, r.Type)
	}
	if r.TTL < 0 {
		return fmt.Errorf("%w: ttl must be non-negative", domain.ErrInvalidTTL)
	}
	return nil
}

func (r *Record) FullName(zone string) string {
	if r.SubDomain == "@" || r.SubDomain == "" {
		return zone
	}
	return r.SubDomain + "." + zone
}

// NormalizeTimes fills UpdatedAt from CreatedAt when the provider never
// reported an update.
func (r *Record) NormalizeTimes() {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
}
