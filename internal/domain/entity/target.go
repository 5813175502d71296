package entity

import (
	"fmt"

	"github.com/lite-lake/infra-cfdns/internal/domain"
)

// Target is the requested domain → sub-domain → lines mapping, kept in the
// order the caller wrote it.
type Target struct {
	Domains []TargetDomain
}

type TargetDomain struct {
	Name       string
	SubDomains []TargetSubDomain
}

type TargetSubDomain struct {
	Name  string
	Lines []Line
}

func (t *Target) Validate() error {
	if len(t.Domains) == 0 {
		return fmt.Errorf("%w: no domains", domain.ErrEmptyValue)
	}
	seen := make(map[string]bool, len(t.Domains))
	for _, d := range t.Domains {
		if err := ValidateDomainName(d.Name); err != nil {
			return err
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate domain %s", domain.ErrInvalidDomain, d.Name)
		}
		seen[d.Name] = true
		if err := d.Validate(); err != nil {
			return domain.WrapEntity("domain", d.Name, err)
		}
	}
	return nil
}

func (d *TargetDomain) Validate() error {
	if len(d.SubDomains) == 0 {
		return fmt.Errorf("%w: no sub domains", domain.ErrEmptyValue)
	}
	seen := make(map[string]bool, len(d.SubDomains))
	for _, sub := range d.SubDomains {
		if err := ValidateSubDomain(sub.Name); err != nil {
			return err
		}
		if seen[sub.Name] {
			return fmt.Errorf("%w: duplicate sub domain %s", domain.ErrInvalidName, sub.Name)
		}
		seen[sub.Name] = true
		if len(sub.Lines) == 0 {
			return fmt.Errorf("%w: sub domain %s has no lines", domain.ErrEmptyValue, sub.Name)
		}
		for _, line := range sub.Lines {
			if !line.IsKnown() {
				return fmt.Errorf("%w: %s", domain.ErrInvalidLine, line)
			}
		}
	}
	return nil
}

// Pairs counts the (domain, sub-domain) pairs.
func (t *Target) Pairs() int {
	n := 0
	for _, d := range t.Domains {
		n += len(d.SubDomains)
	}
	return n
}
