package valueobject

import "strings"

// Scope restricts a run to one domain and optionally one of its sub-domains.
// The zero Scope matches everything.
type Scope struct {
	Domain    string
	SubDomain string
}

func NewScope() *Scope {
	return &Scope{}
}

// ParseScope accepts "domain" or "domain/sub".
func ParseScope(s string) *Scope {
	s = strings.TrimSpace(s)
	if s == "" {
		return NewScope()
	}
	domainName, sub, _ := strings.Cut(s, "/")
	return &Scope{Domain: domainName, SubDomain: sub}
}

func (s *Scope) IsEmpty() bool {
	return s == nil || (s.Domain == "" && s.SubDomain == "")
}

func (s *Scope) MatchesDomain(domainName string) bool {
	return s.IsEmpty() || s.Domain == "" || s.Domain == domainName
}

func (s *Scope) Matches(domainName, subDomain string) bool {
	if !s.MatchesDomain(domainName) {
		return false
	}
	return s.IsEmpty() || s.SubDomain == "" || s.SubDomain == subDomain
}

func (s *Scope) Equals(other *Scope) bool {
	if other == nil {
		return s.IsEmpty()
	}
	return s.Domain == other.Domain && s.SubDomain == other.SubDomain
}

func (s *Scope) String() string {
	if s.IsEmpty() {
		return "*"
	}
	if s.SubDomain == "" {
		return s.Domain
	}
	return s.Domain + "/" + s.SubDomain
}
