package dns

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	alidns "github.com/alibabacloud-go/alidns-20150109/v4/client"
	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	"github.com/alibabacloud-go/tea/tea"

	"github.com/lite-lake/infra-cfdns/internal/constants"
	domainerr "github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/domain/retry"
)

// aliyunLines is the fixed line vocabulary of Alibaba Cloud DNS, code to label.
var aliyunLines = map[string]string{
	"default":  "默认",
	"telecom":  "中国电信",
	"unicom":   "中国联通",
	"mobile":   "中国移动",
	"oversea":  "境外",
	"edu":      "中国教育网",
	"drpeng":   "中国鹏博士",
	"btvn":     "中国广电网",
	"aliyun":   "阿里云",
	"search":   "搜索引擎",
	"internal": "中国地区",
}

// aliyunLineCode maps a taxonomy name, a Chinese label or a native code to
// the native line code.
func aliyunLineCode(line string) (string, error) {
	switch line {
	case "电信", "中国电信":
		line = "telecom"
	case "联通", "中国联通":
		line = "unicom"
	case "移动", "中国移动":
		line = "mobile"
	case "境外", string(entity.LineOverseas):
		line = "oversea"
	case "默认":
		line = "default"
	}
	if _, ok := aliyunLines[line]; !ok {
		return "", fmt.Errorf("%w: %q is not an aliyun line", domainerr.ErrInvalidLine, line)
	}
	return line, nil
}

func aliyunLineFromCode(code string) entity.Line {
	if code == "oversea" {
		return entity.LineOverseas
	}
	return entity.Line(code)
}

type aliyunAPI interface {
	DescribeDomains(request *alidns.DescribeDomainsRequest) (*alidns.DescribeDomainsResponse, error)
	DescribeDomainRecords(request *alidns.DescribeDomainRecordsRequest) (*alidns.DescribeDomainRecordsResponse, error)
	AddDomainRecord(request *alidns.AddDomainRecordRequest) (*alidns.AddDomainRecordResponse, error)
	UpdateDomainRecord(request *alidns.UpdateDomainRecordRequest) (*alidns.UpdateDomainRecordResponse, error)
	DeleteDomainRecord(request *alidns.DeleteDomainRecordRequest) (*alidns.DeleteDomainRecordResponse, error)
	DeleteSubDomainRecords(request *alidns.DeleteSubDomainRecordsRequest) (*alidns.DeleteSubDomainRecordsResponse, error)
}

type AliyunProvider struct {
	client   aliyunAPI
	pageSize int64
	// readRetries is how often a throttled lookup is retried.
	readRetries int
	retryOpts   []retry.Option
}

func NewAliyunProvider(accessKeyID, accessKeySecret, endpoint string) (*AliyunProvider, error) {
	if endpoint == "" {
		endpoint = constants.AliyunEndpoint
	}
	config := &openapi.Config{
		AccessKeyId:     tea.String(accessKeyID),
		AccessKeySecret: tea.String(accessKeySecret),
	}
	config.Endpoint = tea.String(endpoint)
	client, err := alidns.NewClient(config)
	if err != nil {
		return nil, domainerr.WrapOp("create aliyun dns client", err)
	}
	return newAliyunProvider(client), nil
}

func newAliyunProvider(client aliyunAPI) *AliyunProvider {
	return &AliyunProvider{client: client, pageSize: constants.ProviderPageSize}
}

func (p *AliyunProvider) Name() string {
	return string(entity.ISPTypeAliyun)
}

func (p *AliyunProvider) ResolveLine(ctx context.Context, domainName string, line entity.Line) (string, error) {
	return aliyunLineCode(string(line))
}

func (p *AliyunProvider) ListLines(ctx context.Context, domainName string) ([]contract.LineInfo, error) {
	lines := make([]contract.LineInfo, 0, len(aliyunLines))
	for code, label := range aliyunLines {
		lines = append(lines, contract.LineInfo{ID: code, Name: string(aliyunLineFromCode(code)), Label: label})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (p *AliyunProvider) ListDomains(ctx context.Context) ([]entity.Domain, error) {
	var domains []entity.Domain
	for page := int64(1); ; page++ {
		req := &alidns.DescribeDomainsRequest{
			PageNumber: tea.Int64(page),
			PageSize:   tea.Int64(constants.AliyunDomainPageSize),
		}
		resp, err := query(ctx, p.Name(), "describe_domains", p.readRetries, isAliyunThrottled, func() (*alidns.DescribeDomainsResponse, error) {
			return p.client.DescribeDomains(req)
		}, p.retryOpts...)
		if err != nil {
			return nil, domainerr.WrapOp("list domains", err)
		}
		if resp.Body == nil || resp.Body.Domains == nil || len(resp.Body.Domains.Domain) == 0 {
			break
		}
		for _, d := range resp.Body.Domains.Domain {
			domains = append(domains, entity.Domain{
				Name:        tea.StringValue(d.DomainName),
				CreatedAt:   aliyunTime(d.CreateTimestamp),
				RecordCount: int(tea.Int64Value(d.RecordCount)),
			})
		}
		if page >= pageCount(tea.Int64Value(resp.Body.TotalCount), constants.AliyunDomainPageSize) {
			break
		}
	}
	return domains, nil
}

// GetRecords pages through DescribeDomainRecords until ceil(total/size)
// pages were read. RRKeyWord matches fuzzily, so results are narrowed to
// the exact sub-domain here.
func (p *AliyunProvider) GetRecords(ctx context.Context, domainName string, filter contract.RecordFilter) ([]entity.Record, error) {
	req := &alidns.DescribeDomainRecordsRequest{
		DomainName: tea.String(domainName),
		PageSize:   tea.Int64(p.pageSize),
	}
	if filter.SubDomain != "" {
		req.RRKeyWord = tea.String(filter.SubDomain)
	}
	if filter.Type != "" {
		req.Type = tea.String(string(filter.Type))
	}
	if filter.Line != "" {
		code, err := aliyunLineCode(string(filter.Line))
		if err != nil {
			return nil, err
		}
		req.Line = tea.String(code)
	}

	var records []entity.Record
	for page := int64(1); ; page++ {
		req.PageNumber = tea.Int64(page)
		resp, err := query(ctx, p.Name(), "describe_domain_records", p.readRetries, isAliyunThrottled, func() (*alidns.DescribeDomainRecordsResponse, error) {
			return p.client.DescribeDomainRecords(req)
		}, p.retryOpts...)
		if err != nil {
			return nil, domainerr.WrapOp("list records", err)
		}
		if resp.Body == nil || resp.Body.DomainRecords == nil || len(resp.Body.DomainRecords.Record) == 0 {
			break
		}
		for _, r := range resp.Body.DomainRecords.Record {
			if filter.SubDomain != "" && tea.StringValue(r.RR) != filter.SubDomain {
				continue
			}
			records = append(records, aliyunRecord(r))
		}
		if page >= pageCount(tea.Int64Value(resp.Body.TotalCount), p.pageSize) {
			break
		}
	}
	return records, nil
}

func (p *AliyunProvider) CreateRecord(ctx context.Context, domainName string, record *entity.Record) (string, error) {
	code, err := aliyunLineCode(string(record.Line))
	if err != nil {
		return "", err
	}
	req := &alidns.AddDomainRecordRequest{
		DomainName: tea.String(domainName),
		RR:         tea.String(record.SubDomain),
		Type:       tea.String(string(record.Type)),
		Value:      tea.String(record.Value),
		TTL:        tea.Int64(int64(recordTTL(record.TTL))),
		Line:       tea.String(code),
	}
	resp, err := call(ctx, p.Name(), "add_domain_record", func() (*alidns.AddDomainRecordResponse, error) {
		return p.client.AddDomainRecord(req)
	})
	if err != nil {
		return "", domainerr.WrapOp("create record", err)
	}
	if resp.Body == nil || resp.Body.RecordId == nil {
		return "", fmt.Errorf("%w: create record returned no record id", ErrInvalidResponse)
	}
	return tea.StringValue(resp.Body.RecordId), nil
}

func (p *AliyunProvider) UpdateRecord(ctx context.Context, domainName string, recordID string, record *entity.Record) (bool, error) {
	code, err := aliyunLineCode(string(record.Line))
	if err != nil {
		return false, err
	}
	req := &alidns.UpdateDomainRecordRequest{
		RecordId: tea.String(recordID),
		RR:       tea.String(record.SubDomain),
		Type:     tea.String(string(record.Type)),
		Value:    tea.String(record.Value),
		TTL:      tea.Int64(int64(recordTTL(record.TTL))),
		Line:     tea.String(code),
	}
	resp, err := call(ctx, p.Name(), "update_domain_record", func() (*alidns.UpdateDomainRecordResponse, error) {
		return p.client.UpdateDomainRecord(req)
	})
	if err != nil {
		return false, domainerr.WrapOp("update record", err)
	}
	return resp.Body != nil && tea.StringValue(resp.Body.RecordId) == recordID, nil
}

func (p *AliyunProvider) DeleteRecord(ctx context.Context, domainName string, recordID string) (bool, error) {
	req := &alidns.DeleteDomainRecordRequest{
		RecordId: tea.String(recordID),
	}
	resp, err := call(ctx, p.Name(), "delete_domain_record", func() (*alidns.DeleteDomainRecordResponse, error) {
		return p.client.DeleteDomainRecord(req)
	})
	if err != nil {
		return false, domainerr.WrapOp("delete record", err)
	}
	return resp.Body != nil && tea.StringValue(resp.Body.RecordId) == recordID, nil
}

func (p *AliyunProvider) DeleteSubDomainRecords(ctx context.Context, domainName string, subDomain string) (bool, error) {
	req := &alidns.DeleteSubDomainRecordsRequest{
		DomainName: tea.String(domainName),
		RR:         tea.String(subDomain),
	}
	resp, err := call(ctx, p.Name(), "delete_sub_domain_records", func() (*alidns.DeleteSubDomainRecordsResponse, error) {
		return p.client.DeleteSubDomainRecords(req)
	})
	if err != nil {
		return false, domainerr.WrapOp("delete sub domain records", err)
	}
	return resp.Body != nil && tea.StringValue(resp.Body.RR) == subDomain, nil
}

func aliyunRecord(r *alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord) entity.Record {
	rec := entity.Record{
		ID:        tea.StringValue(r.RecordId),
		SubDomain: tea.StringValue(r.RR),
		Type:      entity.DNSRecordType(tea.StringValue(r.Type)),
		Value:     tea.StringValue(r.Value),
		Line:      aliyunLineFromCode(tea.StringValue(r.Line)),
		TTL:       constants.DefaultRecordTTL,
		CreatedAt: aliyunTime(r.CreateTimestamp),
		UpdatedAt: aliyunTime(r.UpdateTimestamp),
	}
	if r.TTL != nil {
		rec.TTL = int(*r.TTL)
	}
	rec.NormalizeTimes()
	return rec
}

// aliyunTime converts a millisecond timestamp; nil or zero yields the zero time.
func aliyunTime(ms *int64) time.Time {
	if ms == nil || *ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(*ms)
}

func pageCount(total, size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// isAliyunThrottled matches the Throttling, Throttling.User and
// Throttling.Api error codes.
func isAliyunThrottled(err error) bool {
	var sdkErr *tea.SDKError
	return errors.As(err, &sdkErr) && strings.HasPrefix(tea.StringValue(sdkErr.Code), "Throttling")
}
