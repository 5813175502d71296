package dns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	alidns "github.com/alibabacloud-go/alidns-20150109/v4/client"
	"github.com/alibabacloud-go/tea/tea"

	"github.com/lite-lake/infra-cfdns/internal/constants"
	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/domain/retry"
)

type fakeAliyunRecord struct {
	id, rr, typ, value, line string
	ttl                      int64
}

type fakeAliyun struct {
	records     []fakeAliyunRecord
	describeErr error
	throttle    int
	echoID      string
	pageCalls   int
	lastAdd     *alidns.AddDomainRecordRequest
	lastUpdate  *alidns.UpdateDomainRecordRequest
	deletedRR   string
}

func (f *fakeAliyun) DescribeDomains(req *alidns.DescribeDomainsRequest) (*alidns.DescribeDomainsResponse, error) {
	return &alidns.DescribeDomainsResponse{Body: &alidns.DescribeDomainsResponseBody{
		TotalCount: tea.Int64(1),
		Domains: &alidns.DescribeDomainsResponseBodyDomains{Domain: []*alidns.DescribeDomainsResponseBodyDomainsDomain{
			{DomainName: tea.String("example.com"), RecordCount: tea.Int64(3), CreateTimestamp: tea.Int64(1700000000000)},
		}},
	}}, nil
}

func (f *fakeAliyun) DescribeDomainRecords(req *alidns.DescribeDomainRecordsRequest) (*alidns.DescribeDomainRecordsResponse, error) {
	f.pageCalls++
	if f.throttle > 0 {
		f.throttle--
		return nil, tea.NewSDKError(map[string]interface{}{
			"code":    "Throttling.User",
			"message": "Request was denied due to user flow control.",
		})
	}
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	var matched []fakeAliyunRecord
	for _, r := range f.records {
		if req.RRKeyWord != nil && !strings.Contains(r.rr, *req.RRKeyWord) {
			continue
		}
		if req.Type != nil && r.typ != *req.Type {
			continue
		}
		if req.Line != nil && r.line != *req.Line {
			continue
		}
		matched = append(matched, r)
	}

	size := tea.Int64Value(req.PageSize)
	start := (tea.Int64Value(req.PageNumber) - 1) * size
	end := min(start+size, int64(len(matched)))
	var page []*alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord
	for i := start; i < end; i++ {
		r := matched[i]
		page = append(page, &alidns.DescribeDomainRecordsResponseBodyDomainRecordsRecord{
			RecordId:        tea.String(r.id),
			RR:              tea.String(r.rr),
			Type:            tea.String(r.typ),
			Value:           tea.String(r.value),
			Line:            tea.String(r.line),
			TTL:             tea.Int64(r.ttl),
			CreateTimestamp: tea.Int64(1700000000000),
		})
	}
	return &alidns.DescribeDomainRecordsResponse{Body: &alidns.DescribeDomainRecordsResponseBody{
		TotalCount:    tea.Int64(int64(len(matched))),
		DomainRecords: &alidns.DescribeDomainRecordsResponseBodyDomainRecords{Record: page},
	}}, nil
}

func (f *fakeAliyun) AddDomainRecord(req *alidns.AddDomainRecordRequest) (*alidns.AddDomainRecordResponse, error) {
	f.lastAdd = req
	return &alidns.AddDomainRecordResponse{Body: &alidns.AddDomainRecordResponseBody{RecordId: tea.String("new-1")}}, nil
}

func (f *fakeAliyun) UpdateDomainRecord(req *alidns.UpdateDomainRecordRequest) (*alidns.UpdateDomainRecordResponse, error) {
	f.lastUpdate = req
	id := tea.StringValue(req.RecordId)
	if f.echoID != "" {
		id = f.echoID
	}
	return &alidns.UpdateDomainRecordResponse{Body: &alidns.UpdateDomainRecordResponseBody{RecordId: tea.String(id)}}, nil
}

func (f *fakeAliyun) DeleteDomainRecord(req *alidns.DeleteDomainRecordRequest) (*alidns.DeleteDomainRecordResponse, error) {
	return &alidns.DeleteDomainRecordResponse{Body: &alidns.DeleteDomainRecordResponseBody{RecordId: req.RecordId}}, nil
}

func (f *fakeAliyun) DeleteSubDomainRecords(req *alidns.DeleteSubDomainRecordsRequest) (*alidns.DeleteSubDomainRecordsResponse, error) {
	f.deletedRR = tea.StringValue(req.RR)
	return &alidns.DeleteSubDomainRecordsResponse{Body: &alidns.DeleteSubDomainRecordsResponseBody{RR: req.RR}}, nil
}

func seedAliyun(n int) []fakeAliyunRecord {
	records := make([]fakeAliyunRecord, n)
	for i := range records {
		records[i] = fakeAliyunRecord{
			id:    fmt.Sprintf("rec-%d", i),
			rr:    "shop",
			typ:   "A",
			value: fmt.Sprintf("10.0.%d.%d", i/256, i%256),
			line:  "mobile",
			ttl:   600,
		}
	}
	return records
}

func TestAliyunLineCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "mobile", want: "mobile"},
		{in: "overseas", want: "oversea"},
		{in: "oversea", want: "oversea"},
		{in: "移动", want: "mobile"},
		{in: "中国联通", want: "unicom"},
		{in: "电信", want: "telecom"},
		{in: "境外", want: "oversea"},
		{in: "默认", want: "default"},
		{in: "edu", want: "edu"},
		{in: "moon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := aliyunLineCode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidLine) {
					t.Fatalf("aliyunLineCode(%q) error = %v, want ErrInvalidLine", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("aliyunLineCode(%q) unexpected error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("aliyunLineCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAliyunProvider_GetRecordsPagination(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		pageSize  int64
		wantPages int
	}{
		{name: "empty", n: 0, pageSize: 200, wantPages: 1},
		{name: "one", n: 1, pageSize: 200, wantPages: 1},
		{name: "exact page", n: 200, pageSize: 200, wantPages: 1},
		{name: "page plus one", n: 201, pageSize: 200, wantPages: 2},
		{name: "several pages", n: 450, pageSize: 200, wantPages: 3},
		{name: "small pages", n: 7, pageSize: 3, wantPages: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAliyun{records: seedAliyun(tt.n)}
			p := newAliyunProvider(fake)
			p.pageSize = tt.pageSize

			records, err := p.GetRecords(context.Background(), "example.com", contract.RecordFilter{
				SubDomain: "shop", Type: entity.DNSRecordTypeA, Line: entity.LineMobile,
			})
			if err != nil {
				t.Fatalf("GetRecords() error = %v", err)
			}
			if len(records) != tt.n {
				t.Fatalf("len(records) = %d, want %d", len(records), tt.n)
			}
			seen := make(map[string]bool)
			for _, r := range records {
				if seen[r.ID] {
					t.Errorf("duplicate record %s", r.ID)
				}
				seen[r.ID] = true
			}
			if fake.pageCalls != tt.wantPages {
				t.Errorf("page calls = %d, want %d", fake.pageCalls, tt.wantPages)
			}
		})
	}
}

func TestAliyunProvider_GetRecordsExactSubDomain(t *testing.T) {
	fake := &fakeAliyun{records: []fakeAliyunRecord{
		{id: "1", rr: "shop", typ: "A", value: "1.1.1.1", line: "mobile", ttl: 600},
		{id: "2", rr: "shop2", typ: "A", value: "1.1.1.2", line: "mobile", ttl: 600},
		{id: "3", rr: "eshop", typ: "A", value: "1.1.1.3", line: "oversea", ttl: 600},
	}}
	p := newAliyunProvider(fake)

	records, err := p.GetRecords(context.Background(), "example.com", contract.RecordFilter{SubDomain: "shop"})
	if err != nil {
		t.Fatalf("GetRecords() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "1" {
		t.Fatalf("GetRecords() = %+v, want only record 1", records)
	}
	if records[0].Line != entity.LineMobile {
		t.Errorf("line = %q, want mobile", records[0].Line)
	}
	if records[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt should fall back to CreatedAt")
	}

	all, err := p.GetRecords(context.Background(), "example.com", contract.RecordFilter{})
	if err != nil {
		t.Fatalf("GetRecords() error = %v", err)
	}
	if all[2].Line != entity.LineOverseas {
		t.Errorf("oversea line = %q, want overseas", all[2].Line)
	}
}

func TestAliyunProvider_GetRecordsInvalidLine(t *testing.T) {
	fake := &fakeAliyun{}
	p := newAliyunProvider(fake)
	_, err := p.GetRecords(context.Background(), "example.com", contract.RecordFilter{Line: "moon"})
	if !errors.Is(err, domain.ErrInvalidLine) {
		t.Fatalf("error = %v, want ErrInvalidLine", err)
	}
	if fake.pageCalls != 0 {
		t.Errorf("page calls = %d, want 0", fake.pageCalls)
	}
}

func TestAliyunProvider_GetRecordsError(t *testing.T) {
	fake := &fakeAliyun{describeErr: errors.New("InvalidAccessKeyId.NotFound")}
	p := newAliyunProvider(fake)
	if _, err := p.GetRecords(context.Background(), "example.com", contract.RecordFilter{}); err == nil {
		t.Fatal("expected error")
	}
	if fake.pageCalls != 1 {
		t.Errorf("page calls = %d, want 1", fake.pageCalls)
	}
}

func TestAliyunProvider_ThrottledLookupFailsWithoutRetries(t *testing.T) {
	fake := &fakeAliyun{records: seedAliyun(3), throttle: 1}
	p := newAliyunProvider(fake)

	_, err := p.GetRecords(context.Background(), "example.com", contract.RecordFilter{SubDomain: "shop"})
	if !isAliyunThrottled(err) {
		t.Errorf("error = %v, want the throttling error", err)
	}
	if fake.pageCalls != 1 {
		t.Errorf("page calls = %d, want 1", fake.pageCalls)
	}
}

func TestAliyunProvider_RetriesThrottledLookups(t *testing.T) {
	fake := &fakeAliyun{records: seedAliyun(3), throttle: 1}
	p := newAliyunProvider(fake)
	p.readRetries = 2
	p.retryOpts = []retry.Option{retry.WithInitialDelay(time.Millisecond)}

	records, err := p.GetRecords(context.Background(), "example.com", contract.RecordFilter{SubDomain: "shop"})
	if err != nil {
		t.Fatalf("GetRecords: %v", err)
	}
	if len(records) != 3 || fake.pageCalls != 2 {
		t.Errorf("records = %d, page calls = %d, want 3 and 2", len(records), fake.pageCalls)
	}

	fake.throttle = 10
	fake.pageCalls = 0
	_, err = p.GetRecords(context.Background(), "example.com", contract.RecordFilter{})
	if !errors.Is(err, retry.ErrMaxAttemptsExceeded) {
		t.Errorf("error = %v, want ErrMaxAttemptsExceeded", err)
	}
	if fake.pageCalls != 3 {
		t.Errorf("page calls = %d, want 3", fake.pageCalls)
	}
}

func TestAliyunProvider_ThrottleBackoffStartsAtReadRetryDelay(t *testing.T) {
	fake := &fakeAliyun{records: seedAliyun(1), throttle: 1}
	p := newAliyunProvider(fake)
	p.readRetries = 1
	var delays []time.Duration
	p.retryOpts = []retry.Option{retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
		delays = append(delays, delay)
	})}

	if _, err := p.GetRecords(context.Background(), "example.com", contract.RecordFilter{}); err != nil {
		t.Fatalf("GetRecords: %v", err)
	}
	if len(delays) != 1 || delays[0] != constants.ReadRetryInitialDelay {
		t.Errorf("delays = %v, want [%v]", delays, constants.ReadRetryInitialDelay)
	}
}

func TestIsAliyunThrottled(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "user flow control", err: tea.NewSDKError(map[string]interface{}{"code": "Throttling.User"}), want: true},
		{name: "plain throttling", err: fmt.Errorf("list: %w", tea.NewSDKError(map[string]interface{}{"code": "Throttling"})), want: true},
		{name: "auth", err: tea.NewSDKError(map[string]interface{}{"code": "InvalidAccessKeyId.NotFound"}), want: false},
		{name: "not an sdk error", err: errors.New("Throttling"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAliyunThrottled(tt.err); got != tt.want {
				t.Errorf("isAliyunThrottled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAliyunProvider_CreateAndUpdate(t *testing.T) {
	fake := &fakeAliyun{}
	p := newAliyunProvider(fake)
	ctx := context.Background()
	rec := &entity.Record{SubDomain: "shop", Type: entity.DNSRecordTypeA, Value: "1.1.1.1", Line: entity.LineOverseas}

	id, err := p.CreateRecord(ctx, "example.com", rec)
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if id != "new-1" {
		t.Errorf("id = %q, want new-1", id)
	}
	if got := tea.StringValue(fake.lastAdd.Line); got != "oversea" {
		t.Errorf("line sent = %q, want oversea", got)
	}
	if got := tea.Int64Value(fake.lastAdd.TTL); got != 600 {
		t.Errorf("ttl sent = %d, want default 600", got)
	}

	rec.TTL = 120
	ok, err := p.UpdateRecord(ctx, "example.com", "rec-1", rec)
	if err != nil || !ok {
		t.Fatalf("UpdateRecord() = %v, %v; want true, nil", ok, err)
	}
	if got := tea.Int64Value(fake.lastUpdate.TTL); got != 120 {
		t.Errorf("ttl sent = %d, want 120", got)
	}

	fake.echoID = "someone-else"
	ok, err = p.UpdateRecord(ctx, "example.com", "rec-1", rec)
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	if ok {
		t.Error("UpdateRecord() should report false on id mismatch")
	}
}

func TestAliyunProvider_Deletes(t *testing.T) {
	fake := &fakeAliyun{}
	p := newAliyunProvider(fake)
	ctx := context.Background()

	ok, err := p.DeleteRecord(ctx, "example.com", "rec-1")
	if err != nil || !ok {
		t.Fatalf("DeleteRecord() = %v, %v", ok, err)
	}
	ok, err = p.DeleteSubDomainRecords(ctx, "example.com", "shop")
	if err != nil || !ok {
		t.Fatalf("DeleteSubDomainRecords() = %v, %v", ok, err)
	}
	if fake.deletedRR != "shop" {
		t.Errorf("deleted rr = %q, want shop", fake.deletedRR)
	}
}

func TestAliyunProvider_ListDomainsAndLines(t *testing.T) {
	p := newAliyunProvider(&fakeAliyun{})
	ctx := context.Background()

	domains, err := p.ListDomains(ctx)
	if err != nil {
		t.Fatalf("ListDomains() error = %v", err)
	}
	if len(domains) != 1 || domains[0].Name != "example.com" || domains[0].RecordCount != 3 {
		t.Errorf("ListDomains() = %+v", domains)
	}

	lines, err := p.ListLines(ctx, "example.com")
	if err != nil {
		t.Fatalf("ListLines() error = %v", err)
	}
	if len(lines) != len(aliyunLines) {
		t.Errorf("len(lines) = %d, want %d", len(lines), len(aliyunLines))
	}
	for _, line := range entity.AllLines() {
		if _, err := p.ResolveLine(ctx, "example.com", line); err != nil {
			t.Errorf("ResolveLine(%s) error = %v", line, err)
		}
	}
}

func TestAliyunProvider_CancelledContext(t *testing.T) {
	fake := &fakeAliyun{records: seedAliyun(3)}
	p := newAliyunProvider(fake)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.GetRecords(ctx, "example.com", contract.RecordFilter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fake.pageCalls != 0 {
		t.Errorf("page calls = %d, want 0", fake.pageCalls)
	}
}
