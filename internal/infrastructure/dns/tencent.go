package dns

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tcerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	dnspod "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/dnspod/v20210323"

	"github.com/lite-lake/infra-cfdns/internal/constants"
	domainerr "github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/domain/retry"
)

// codeNoDataOfRecord is returned by DescribeRecordList when nothing matches.
const codeNoDataOfRecord = "ResourceNotFound.NoDataOfRecord"

// DNSPod reports times in China Standard Time without a zone.
var dnspodZone = time.FixedZone("CST", 8*60*60)

type dnspodAPI interface {
	DescribeDomainListWithContext(ctx context.Context, request *dnspod.DescribeDomainListRequest) (*dnspod.DescribeDomainListResponse, error)
	DescribeRecordListWithContext(ctx context.Context, request *dnspod.DescribeRecordListRequest) (*dnspod.DescribeRecordListResponse, error)
	DescribeRecordLineListWithContext(ctx context.Context, request *dnspod.DescribeRecordLineListRequest) (*dnspod.DescribeRecordLineListResponse, error)
	CreateRecordWithContext(ctx context.Context, request *dnspod.CreateRecordRequest) (*dnspod.CreateRecordResponse, error)
	ModifyRecordWithContext(ctx context.Context, request *dnspod.ModifyRecordRequest) (*dnspod.ModifyRecordResponse, error)
	DeleteRecordWithContext(ctx context.Context, request *dnspod.DeleteRecordRequest) (*dnspod.DeleteRecordResponse, error)
}

// TencentProvider talks to DNSPod. The accepted lines of each domain are
// fetched once per provider instance and kept for its lifetime.
type TencentProvider struct {
	client      dnspodAPI
	domainGrade string
	pageSize    uint64
	lines       map[string][]contract.LineInfo
	readRetries int
	retryOpts   []retry.Option
}

func NewTencentProvider(secretID, secretKey, endpoint, domainGrade string) (*TencentProvider, error) {
	if endpoint == "" {
		endpoint = constants.DNSPodEndpoint
	}
	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = endpoint
	client, err := dnspod.NewClient(credential, "", cpf)
	if err != nil {
		return nil, domainerr.WrapOp("create tencent dns client", err)
	}
	return newTencentProvider(client, domainGrade), nil
}

func newTencentProvider(client dnspodAPI, domainGrade string) *TencentProvider {
	if domainGrade == "" {
		domainGrade = constants.DefaultDomainGrade
	}
	return &TencentProvider{
		client:      client,
		domainGrade: domainGrade,
		pageSize:    constants.ProviderPageSize,
		lines:       make(map[string][]contract.LineInfo),
	}
}

func (p *TencentProvider) Name() string {
	return string(entity.ISPTypeDNSPod)
}

// ListLines returns the lines DNSPod accepts for domain under the
// configured grade.
func (p *TencentProvider) ListLines(ctx context.Context, domainName string) ([]contract.LineInfo, error) {
	if lines, ok := p.lines[domainName]; ok {
		return lines, nil
	}
	req := dnspod.NewDescribeRecordLineListRequest()
	req.Domain = common.StringPtr(domainName)
	req.DomainGrade = common.StringPtr(p.domainGrade)
	resp, err := query(ctx, p.Name(), "describe_record_line_list", p.readRetries, isDNSPodThrottled, func() (*dnspod.DescribeRecordLineListResponse, error) {
		return p.client.DescribeRecordLineListWithContext(ctx, req)
	}, p.retryOpts...)
	if err != nil {
		return nil, domainerr.WrapOp("list lines", err)
	}

	var lines []contract.LineInfo
	if resp.Response != nil {
		for _, l := range resp.Response.LineList {
			name := derefString(l.Name)
			info := contract.LineInfo{ID: derefString(l.LineId), Name: name}
			if line, ok := entity.LineFromLabel(name); ok {
				info.Name = string(line)
				info.Label = name
			}
			lines = append(lines, info)
		}
	}
	p.lines[domainName] = lines
	return lines, nil
}

// ResolveLine translates taxonomy lines to their Chinese label and checks
// the result against the domain's accepted lines.
func (p *TencentProvider) ResolveLine(ctx context.Context, domainName string, line entity.Line) (string, error) {
	name := string(line)
	if line.IsKnown() {
		name = line.Label()
	}
	lines, err := p.ListLines(ctx, domainName)
	if err != nil {
		return "", err
	}
	for _, l := range lines {
		if l.Name == name || (l.Label != "" && l.Label == name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a dnspod line for %s", domainerr.ErrInvalidLine, name, domainName)
}

func (p *TencentProvider) ListDomains(ctx context.Context) ([]entity.Domain, error) {
	var domains []entity.Domain
	for offset := int64(0); ; {
		req := dnspod.NewDescribeDomainListRequest()
		req.Offset = common.Int64Ptr(offset)
		req.Limit = common.Int64Ptr(constants.DNSPodDomainPageSize)
		resp, err := query(ctx, p.Name(), "describe_domain_list", p.readRetries, isDNSPodThrottled, func() (*dnspod.DescribeDomainListResponse, error) {
			return p.client.DescribeDomainListWithContext(ctx, req)
		}, p.retryOpts...)
		if err != nil {
			return nil, domainerr.WrapOp("list domains", err)
		}
		if resp.Response == nil || len(resp.Response.DomainList) == 0 {
			break
		}
		for _, d := range resp.Response.DomainList {
			domains = append(domains, entity.Domain{
				Name:        derefString(d.Name),
				CreatedAt:   dnspodTime(d.CreatedOn),
				RecordCount: int(derefUint64(d.RecordCount)),
			})
		}
		offset += int64(len(resp.Response.DomainList))
		if info := resp.Response.DomainCountInfo; info == nil || uint64(offset) >= derefUint64(info.AllTotal) {
			break
		}
	}
	return domains, nil
}

// GetRecords pages with Offset/Limit until offset+ListCount reaches
// TotalCount. A NoDataOfRecord answer is an empty result.
func (p *TencentProvider) GetRecords(ctx context.Context, domainName string, filter contract.RecordFilter) ([]entity.Record, error) {
	req := dnspod.NewDescribeRecordListRequest()
	req.Domain = common.StringPtr(domainName)
	req.Limit = common.Uint64Ptr(p.pageSize)
	if filter.SubDomain != "" {
		req.Subdomain = common.StringPtr(filter.SubDomain)
	}
	if filter.Type != "" {
		req.RecordType = common.StringPtr(string(filter.Type))
	}
	if filter.Line != "" {
		name, err := p.ResolveLine(ctx, domainName, filter.Line)
		if err != nil {
			return nil, err
		}
		req.RecordLine = common.StringPtr(name)
	}

	var records []entity.Record
	for offset := uint64(0); ; {
		req.Offset = common.Uint64Ptr(offset)
		resp, err := query(ctx, p.Name(), "describe_record_list", p.readRetries, isDNSPodThrottled, func() (*dnspod.DescribeRecordListResponse, error) {
			resp, err := p.client.DescribeRecordListWithContext(ctx, req)
			if isNoDataOfRecord(err) {
				return dnspod.NewDescribeRecordListResponse(), nil
			}
			return resp, err
		}, p.retryOpts...)
		if err != nil {
			return nil, domainerr.WrapOp("list records", err)
		}
		if resp.Response == nil || len(resp.Response.RecordList) == 0 {
			break
		}
		for _, r := range resp.Response.RecordList {
			records = append(records, dnspodRecord(r))
		}
		info := resp.Response.RecordCountInfo
		if info == nil {
			break
		}
		listed := offset + derefUint64(info.ListCount)
		if listed >= derefUint64(info.TotalCount) {
			break
		}
		offset = listed
	}
	return records, nil
}

func (p *TencentProvider) CreateRecord(ctx context.Context, domainName string, record *entity.Record) (string, error) {
	line, err := p.ResolveLine(ctx, domainName, record.Line)
	if err != nil {
		return "", err
	}
	req := dnspod.NewCreateRecordRequest()
	req.Domain = common.StringPtr(domainName)
	req.SubDomain = common.StringPtr(record.SubDomain)
	req.RecordType = common.StringPtr(string(record.Type))
	req.RecordLine = common.StringPtr(line)
	req.Value = common.StringPtr(record.Value)
	req.TTL = common.Uint64Ptr(uint64(recordTTL(record.TTL)))

	resp, err := call(ctx, p.Name(), "create_record", func() (*dnspod.CreateRecordResponse, error) {
		return p.client.CreateRecordWithContext(ctx, req)
	})
	if err != nil {
		return "", domainerr.WrapOp("create record", err)
	}
	if resp.Response == nil || resp.Response.RecordId == nil {
		return "", fmt.Errorf("%w: create record returned no record id", ErrInvalidResponse)
	}
	return strconv.FormatUint(*resp.Response.RecordId, 10), nil
}

func (p *TencentProvider) UpdateRecord(ctx context.Context, domainName string, recordID string, record *entity.Record) (bool, error) {
	id, err := strconv.ParseUint(recordID, 10, 64)
	if err != nil {
		return false, domainerr.WrapOp("parse record ID", err)
	}
	line, err := p.ResolveLine(ctx, domainName, record.Line)
	if err != nil {
		return false, err
	}
	req := dnspod.NewModifyRecordRequest()
	req.Domain = common.StringPtr(domainName)
	req.RecordId = common.Uint64Ptr(id)
	req.SubDomain = common.StringPtr(record.SubDomain)
	req.RecordType = common.StringPtr(string(record.Type))
	req.RecordLine = common.StringPtr(line)
	req.Value = common.StringPtr(record.Value)
	req.TTL = common.Uint64Ptr(uint64(recordTTL(record.TTL)))

	resp, err := call(ctx, p.Name(), "modify_record", func() (*dnspod.ModifyRecordResponse, error) {
		return p.client.ModifyRecordWithContext(ctx, req)
	})
	if err != nil {
		return false, domainerr.WrapOp("update record", err)
	}
	return resp.Response != nil && derefUint64(resp.Response.RecordId) == id, nil
}

func (p *TencentProvider) DeleteRecord(ctx context.Context, domainName string, recordID string) (bool, error) {
	id, err := strconv.ParseUint(recordID, 10, 64)
	if err != nil {
		return false, domainerr.WrapOp("parse record ID", err)
	}
	req := dnspod.NewDeleteRecordRequest()
	req.Domain = common.StringPtr(domainName)
	req.RecordId = common.Uint64Ptr(id)

	_, err = call(ctx, p.Name(), "delete_record", func() (*dnspod.DeleteRecordResponse, error) {
		return p.client.DeleteRecordWithContext(ctx, req)
	})
	if err != nil {
		return false, domainerr.WrapOp("delete record", err)
	}
	return true, nil
}

// DeleteSubDomainRecords has no single DNSPod call; it lists the
// sub-domain's records and deletes them one by one.
func (p *TencentProvider) DeleteSubDomainRecords(ctx context.Context, domainName string, subDomain string) (bool, error) {
	records, err := p.GetRecords(ctx, domainName, contract.RecordFilter{SubDomain: subDomain})
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if _, err := p.DeleteRecord(ctx, domainName, r.ID); err != nil {
			return false, err
		}
	}
	return true, nil
}

func dnspodRecord(r *dnspod.RecordListItem) entity.Record {
	native := derefString(r.Line)
	line, ok := entity.LineFromLabel(native)
	if !ok {
		line = entity.Line(native)
	}
	rec := entity.Record{
		ID:        strconv.FormatUint(derefUint64(r.RecordId), 10),
		SubDomain: derefString(r.Name),
		Type:      entity.DNSRecordType(derefString(r.Type)),
		Value:     derefString(r.Value),
		Line:      line,
		TTL:       constants.DefaultRecordTTL,
		// DNSPod only reports the last update.
		CreatedAt: dnspodTime(r.UpdatedOn),
	}
	if r.TTL != nil {
		rec.TTL = int(*r.TTL)
	}
	rec.NormalizeTimes()
	return rec
}

func dnspodTime(s *string) time.Time {
	if s == nil || *s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(time.DateTime, *s, dnspodZone)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isNoDataOfRecord(err error) bool {
	var sdkErr *tcerrors.TencentCloudSDKError
	return errors.As(err, &sdkErr) && sdkErr.GetCode() == codeNoDataOfRecord
}

// isDNSPodThrottled matches RequestLimitExceeded and its sub codes.
func isDNSPodThrottled(err error) bool {
	var sdkErr *tcerrors.TencentCloudSDKError
	return errors.As(err, &sdkErr) && strings.HasPrefix(sdkErr.GetCode(), "RequestLimitExceeded")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefUint64(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
