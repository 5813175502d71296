package contract

import (
	"context"

	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
)

// CandidateSource returns the recommended IPs per line for one IP version.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, version entity.IPVersion) (entity.Candidates, error)
}
