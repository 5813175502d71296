package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/domain/repository"
)

// rawDomain and rawSubDomain hold a decoded target spec in document order
// before line tokens are resolved.
type rawDomain struct {
	name string
	subs []rawSubDomain
}

type rawSubDomain struct {
	name   string
	tokens []string
}

// TargetLoader reads the {"domain": {"sub": ["CM", ...]}} target spec.
type TargetLoader struct{}

var _ repository.TargetRepository = (*TargetLoader)(nil)

func NewTargetLoader() *TargetLoader {
	return &TargetLoader{}
}

// Load prefers inline JSON over a file path. With neither set it fails
// with domain.ErrConfigNotFound.
func (l *TargetLoader) Load(inline, path string) (*entity.Target, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return l.LoadInline(inline)
	case path != "":
		return l.LoadFile(path)
	default:
		return nil, fmt.Errorf("%w: no target spec given, use --domain, --domain-file, DOMAIN_INFO or DOMAIN_INFO_FILE", domain.ErrConfigNotFound)
	}
}

func (l *TargetLoader) LoadInline(data string) (*entity.Target, error) {
	raw, err := decodeJSON([]byte(data))
	if err != nil {
		return nil, err
	}
	return buildTarget(raw)
}

// LoadFile reads JSON, or YAML when the file ends in .yaml or .yml.
func (l *TargetLoader) LoadFile(path string) (*entity.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfigReadFailed, path, err)
	}

	var raw []rawDomain
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = decodeYAML(data)
	default:
		raw, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buildTarget(raw)
}

func buildTarget(raw []rawDomain) (*entity.Target, error) {
	target := &entity.Target{}
	for _, d := range raw {
		td := entity.TargetDomain{Name: d.name}
		for _, s := range d.subs {
			sub := entity.TargetSubDomain{Name: s.name}
			for _, token := range s.tokens {
				line, err := entity.ParseLineToken(token)
				if err != nil {
					return nil, fmt.Errorf("%w: %s.%s: %w", domain.ErrConfigValidateFail, s.name, d.name, err)
				}
				sub.Lines = append(sub.Lines, line)
			}
			td.SubDomains = append(td.SubDomains, sub)
		}
		target.Domains = append(target.Domains, td)
	}
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigValidateFail, err)
	}
	return target, nil
}

func parseErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfigParseFailed, fmt.Sprintf(format, args...))
}

// decodeJSON only accepts valid JSON, then reads it as YAML, which keeps the
// key order.
func decodeJSON(data []byte) ([]rawDomain, error) {
	if !json.Valid(data) {
		return nil, parseErr("target spec is not valid JSON")
	}
	return decodeYAML(data)
}

func decodeYAML(data []byte) ([]rawDomain, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, parseErr("%v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, parseErr("target spec is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, parseErr("line %d: expected a mapping of domains", root.Line)
	}

	var out []rawDomain
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.MappingNode {
			return nil, parseErr("line %d: domain %s must map sub domains to lines", val.Line, key.Value)
		}
		d := rawDomain{name: key.Value}
		for j := 0; j+1 < len(val.Content); j += 2 {
			subKey, lines := val.Content[j], val.Content[j+1]
			if lines.Kind != yaml.SequenceNode {
				return nil, parseErr("line %d: lines of %s.%s must be a list", lines.Line, subKey.Value, key.Value)
			}
			sub := rawSubDomain{name: subKey.Value}
			for _, item := range lines.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, parseErr("line %d: line token must be a string", item.Line)
				}
				sub.tokens = append(sub.tokens, item.Value)
			}
			d.subs = append(d.subs, sub)
		}
		out = append(out, d)
	}
	return out, nil
}
