package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lite-lake/infra-cfdns/internal/domain"
)

// Domain is a zone snapshot returned by a provider.
type Domain struct {
	Name        string
	CreatedAt   time.Time
	RecordCount int
}

var domainRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

var subDomainRegex = regexp.MustCompile(`^(@|\*|(\*\.)?[a-zA-Z0-9_]([a-zA-Z0-9_-]{0,61}[a-zA-Z0-9_])?(\.[a-zA-Z0-9_]([a-zA-Z0-9_-]{0,61}[a-zA-Z0-9_])?)*)$`)

func ValidateDomainName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: domain name is required", domain.ErrInvalidDomain)
	}
	if !domainRegex.MatchString(strings.TrimSuffix(name, ".")) {
		return fmt.Errorf("%w: invalid domain format %s", domain.ErrInvalidDomain, name)
	}
	return nil
}

func ValidateSubDomain(name string) error {
	if name == "" {
		return fmt.Errorf("%w: sub domain is required", domain.ErrInvalidName)
	}
	if !subDomainRegex.MatchString(name) {
		return fmt.Errorf("%w: invalid sub domain %s", domain.ErrInvalidName, name)
	}
	return nil
}

func (d *Domain) Validate() error {
	return ValidateDomainName(d.Name)
}
