package entity

import (
	"fmt"

	"github.com/lite-lake/infra-cfdns/internal/domain"
)

type IPVersion string

const (
	IPVersion4 IPVersion = "v4"
	IPVersion6 IPVersion = "v6"
)

func ParseIPVersion(s string) (IPVersion, error) {
	switch IPVersion(s) {
	case IPVersion4, IPVersion6:
		return IPVersion(s), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidProtocol, s)
	}
}

// RecordType is the address record type carrying this IP version.
func (v IPVersion) RecordType() DNSRecordType {
	if v == IPVersion6 {
		return DNSRecordTypeAAAA
	}
	return DNSRecordTypeA
}

// CandidateIP is one recommended address. Only IP takes part in
// reconciliation; the rest is informational.
type CandidateIP struct {
	IP      string
	Line    Line
	Colo    string
	Latency float64
	Loss    float64
	Speed   float64
}

// Candidates holds the ordered recommendations per line.
type Candidates map[Line][]CandidateIP

// For reports false only when the recommendation has no entry for line.
// A present entry may hold no addresses.
func (c Candidates) For(line Line) ([]CandidateIP, bool) {
	ips, ok := c[line]
	return ips, ok
}

func (c Candidates) Total() int {
	n := 0
	for _, ips := range c {
		n += len(ips)
	}
	return n
}
