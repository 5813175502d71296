package cli

import (
	"io"
	"os"

	"github.com/lite-lake/infra-cfdns/internal/config"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/repository"
	"github.com/lite-lake/infra-cfdns/internal/domain/service"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/dns"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/optimization"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/persistence"
)

// Context carries what the commands need from the outside world.
type Context struct {
	In  io.Reader
	Out io.Writer

	Providers     *dns.Factory
	Targets       repository.TargetRepository
	NewCandidates func(s *config.Settings) contract.CandidateSource
	// Rand is nil outside tests.
	Rand service.Rand
}

func NewContext() *Context {
	return &Context{
		In:            os.Stdin,
		Out:           os.Stdout,
		Providers:     dns.NewFactory(),
		Targets:       persistence.NewTargetLoader(),
		NewCandidates: newCandidateSource,
	}
}

func newCandidateSource(s *config.Settings) contract.CandidateSource {
	return optimization.NewClient(
		optimization.WithURL(s.HostmonitURL),
		optimization.WithKey(s.HostmonitKey),
		optimization.WithTimeout(s.Timeout),
	)
}
