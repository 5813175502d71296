// Package config merges run settings from defaults, an optional TOML file,
// the environment and command line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"

	"github.com/lite-lake/infra-cfdns/internal/constants"
	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/domain/valueobject"
)

// envKeys maps the unprefixed environment variables to setting keys.
var envKeys = map[string]string{
	"SECRET_ID":        "secret_id",
	"SECRET_KEY":       "secret_key",
	"DOMAIN_INFO":      "domain",
	"DOMAIN_INFO_FILE": "domain_file",
	"KEY":              "hostmonit_key",
}

// settingKeys are the keys accepted from CFDNS_ prefixed variables.
var settingKeys = map[string]bool{
	"ipv4": true, "ipv6": true, "record_num": true, "ttl": true,
	"secret_id": true, "secret_key": true, "domain": true, "domain_file": true,
	"hostmonit_key": true, "hostmonit_url": true, "endpoint": true, "domain_grade": true,
	"dry_run": true, "lock_file": true, "timeout": true, "scope": true,
	"read_retries": true,
}

// flagKeys lists flags whose setting key is not the flag name.
var flagKeys = map[string]string{
	"id":  "secret_id",
	"key": "secret_key",
}

type Settings struct {
	Provider     entity.ISPType `koanf:"-"`
	IPv4         bool           `koanf:"ipv4"`
	IPv6         bool           `koanf:"ipv6"`
	RecordCount  int            `koanf:"record_num"`
	TTL          int            `koanf:"ttl"`
	SecretID     string         `koanf:"secret_id"`
	SecretKey    string         `koanf:"secret_key"`
	Domain       string         `koanf:"domain"`
	DomainFile   string         `koanf:"domain_file"`
	HostmonitKey string         `koanf:"hostmonit_key"`
	HostmonitURL string         `koanf:"hostmonit_url"`
	Endpoint     string         `koanf:"endpoint"`
	DomainGrade  string         `koanf:"domain_grade"`
	DryRun       bool           `koanf:"dry_run"`
	LockFile     string         `koanf:"lock_file"`
	Timeout      time.Duration  `koanf:"timeout"`
	Scope        string         `koanf:"scope"`
	ReadRetries  int            `koanf:"read_retries"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"ipv4":          false,
		"ipv6":          false,
		"record_num":    constants.DefaultRecordCount,
		"ttl":           constants.DefaultRecordTTL,
		"hostmonit_key": constants.DefaultHostmonitKey,
		"hostmonit_url": constants.HostmonitURL,
		"domain_grade":  constants.DefaultDomainGrade,
		"dry_run":       false,
		"lock_file":     filepath.Join(os.TempDir(), constants.LockFileName),
		"timeout":       constants.DefaultRequestTimeout,
		"read_retries":  constants.DefaultReadRetries,
	}
}

// RegisterProviderFlags adds the flags every provider command shares.
func RegisterProviderFlags(fs *pflag.FlagSet) {
	fs.StringP("id", "i", "", "provider API SecretId (env SECRET_ID)")
	fs.StringP("key", "k", "", "provider API SecretKey (env SECRET_KEY)")
	fs.String("endpoint", "", "provider API endpoint override")
	fs.String("domain-grade", constants.DefaultDomainGrade, "DNSPod domain grade used to look up lines")
	fs.Duration("timeout", constants.DefaultRequestTimeout, "timeout for each recommendation request")
	fs.Int("read-retries", constants.DefaultReadRetries, "retries of provider lookups rejected by rate limiting")
	fs.String("config", "", "path to a TOML settings file")
}

// RegisterSyncFlags adds the flags of the reconciliation run.
func RegisterSyncFlags(fs *pflag.FlagSet) {
	fs.BoolP("ipv4", "4", false, "reconcile A records with recommended IPv4 addresses")
	fs.BoolP("ipv6", "6", false, "reconcile AAAA records with recommended IPv6 addresses")
	fs.IntP("record-num", "n", constants.DefaultRecordCount, "records per sub domain and line")
	fs.Int("ttl", constants.DefaultRecordTTL, "TTL of created records")
	fs.StringP("domain", "d", "", `target spec as JSON, e.g. {"example.com": {"shop": ["CM", "CU"]}} (env DOMAIN_INFO)`)
	fs.StringP("domain-file", "f", "", "target spec file, JSON or YAML (env DOMAIN_INFO_FILE)")
	fs.String("hostmonit-key", constants.DefaultHostmonitKey, "recommendation service key (env KEY)")
	fs.Bool("dry-run", false, "log decisions without changing records")
	fs.String("lock-file", filepath.Join(os.TempDir(), constants.LockFileName), "lock file preventing overlapping runs")
	fs.String("scope", "", "only reconcile domain or domain/sub")
}

// Load merges defaults, the --config file, the environment and the flags
// the user set explicitly.
func Load(fs *pflag.FlagSet) (*Settings, error) {
	ko := koanf.New(".")
	if err := ko.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("%w: defaults: %v", domain.ErrConfigParseFailed, err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		if err := ko.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfigParseFailed, path, err)
		}
	}

	if err := ko.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", domain.ErrConfigParseFailed, err)
	}

	if err := ko.Load(posflag.ProviderWithFlag(fs, ".", ko, func(f *pflag.Flag) (string, interface{}) {
		if f.Name == "config" {
			return "", nil
		}
		return flagKey(f.Name), posflag.FlagVal(fs, f)
	}), nil); err != nil {
		return nil, fmt.Errorf("%w: flags: %v", domain.ErrConfigParseFailed, err)
	}

	s := &Settings{}
	if err := ko.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigParseFailed, err)
	}

	// An explicit -d or -f replaces whatever the other source came from.
	if fs.Changed("domain") {
		s.DomainFile = ""
	}
	if fs.Changed("domain-file") {
		s.Domain = ""
	}
	return s, nil
}

// envValue maps SECRET_ID style variables and CFDNS_ prefixed settings to
// keys. Anything else is skipped.
func envValue(name, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	if key, ok := envKeys[name]; ok {
		return key, value
	}
	if strings.HasPrefix(name, constants.EnvPrefix) {
		key := strings.ToLower(strings.TrimPrefix(name, constants.EnvPrefix))
		if settingKeys[key] {
			return key, value
		}
	}
	return "", nil
}

func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

func (s *Settings) ISP() *entity.ISP {
	return &entity.ISP{
		Type:        s.Provider,
		SecretID:    s.SecretID,
		SecretKey:   s.SecretKey,
		Endpoint:    s.Endpoint,
		DomainGrade: s.DomainGrade,
		ReadRetries: s.ReadRetries,
	}
}

// IPVersions lists the selected versions, IPv4 first.
func (s *Settings) IPVersions() []entity.IPVersion {
	var versions []entity.IPVersion
	if s.IPv4 {
		versions = append(versions, entity.IPVersion4)
	}
	if s.IPv6 {
		versions = append(versions, entity.IPVersion6)
	}
	return versions
}

func (s *Settings) ParsedScope() (*valueobject.Scope, error) {
	scope := valueobject.ParseScope(s.Scope)
	if scope.Domain != "" {
		if err := entity.ValidateDomainName(scope.Domain); err != nil {
			return nil, fmt.Errorf("scope: %w", err)
		}
	}
	return scope, nil
}

// ValidateProvider checks what every provider command needs.
func (s *Settings) ValidateProvider() error {
	return s.ISP().Validate()
}

// Validate checks a reconciliation run's settings.
func (s *Settings) Validate() error {
	var errs []error
	if err := s.ValidateProvider(); err != nil {
		errs = append(errs, err)
	}
	if !s.IPv4 && !s.IPv6 {
		errs = append(errs, fmt.Errorf("%w: select -4 and/or -6", domain.ErrConfigValidateFail))
	}
	if s.RecordCount < 1 {
		errs = append(errs, fmt.Errorf("%w: record-num must be at least 1, got %d", domain.ErrConfigValidateFail, s.RecordCount))
	}
	if s.TTL < 1 {
		errs = append(errs, fmt.Errorf("%w: ttl must be positive, got %d", domain.ErrInvalidTTL, s.TTL))
	}
	if _, err := s.ParsedScope(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
