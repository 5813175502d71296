package entity

import (
	"fmt"

	"github.com/lite-lake/infra-cfdns/internal/domain"
)

type ISPType string

const (
	ISPTypeAliyun ISPType = "aliyun"
	ISPTypeDNSPod ISPType = "dnspod"
)

func ISPTypes() []ISPType {
	return []ISPType{ISPTypeAliyun, ISPTypeDNSPod}
}

func ParseISPType(s string) (ISPType, error) {
	for _, t := range ISPTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, s)
}

// ISP describes the DNS provider account a run talks to.
type ISP struct {
	Type        ISPType
	SecretID    string
	SecretKey   string
	Endpoint    string
	DomainGrade string
	// ReadRetries is how often a throttled lookup is retried. Writes are
	// never retried.
	ReadRetries int
}

func (i *ISP) Validate() error {
	if _, err := ParseISPType(string(i.Type)); err != nil {
		return err
	}
	if i.ReadRetries < 0 {
		return fmt.Errorf("%w: read retries must not be negative, got %d", domain.ErrConfigValidateFail, i.ReadRetries)
	}
	return i.ValidateCredentials()
}

func (i *ISP) ValidateCredentials() error {
	if i.SecretID == "" {
		return fmt.Errorf("%w: secret_id", domain.ErrMissingCredential)
	}
	if i.SecretKey == "" {
		return fmt.Errorf("%w: secret_key", domain.ErrMissingCredential)
	}
	return nil
}
