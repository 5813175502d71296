package dns

import (
	"fmt"

	domainerr "github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
)

type CreatorFunc func(isp *entity.ISP) (Provider, error)

type Factory struct {
	creators map[entity.ISPType]CreatorFunc
}

func NewFactory() *Factory {
	return &Factory{
		creators: map[entity.ISPType]CreatorFunc{
			entity.ISPTypeAliyun: createAliyun,
			entity.ISPTypeDNSPod: createTencent,
		},
	}
}

func (f *Factory) Create(isp *entity.ISP) (Provider, error) {
	creator, ok := f.creators[isp.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainerr.ErrUnsupportedProvider, isp.Type)
	}
	if err := isp.ValidateCredentials(); err != nil {
		return nil, err
	}
	return creator(isp)
}

func (f *Factory) Register(providerType entity.ISPType, creator CreatorFunc) {
	f.creators[providerType] = creator
}

func createAliyun(isp *entity.ISP) (Provider, error) {
	p, err := NewAliyunProvider(isp.SecretID, isp.SecretKey, isp.Endpoint)
	if err != nil {
		return nil, err
	}
	p.readRetries = isp.ReadRetries
	return p, nil
}

func createTencent(isp *entity.ISP) (Provider, error) {
	p, err := NewTencentProvider(isp.SecretID, isp.SecretKey, isp.Endpoint, isp.DomainGrade)
	if err != nil {
		return nil, err
	}
	p.readRetries = isp.ReadRetries
	return p, nil
}
