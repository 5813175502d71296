package repository

import "github.com/lite-lake/infra-cfdns/internal/domain/entity"

// TargetRepository supplies the domain → sub-domain → lines mapping of a run,
// either from inline text or from a file.
type TargetRepository interface {
	Load(inline, path string) (*entity.Target, error)
}
