package cli

import (
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lite-lake/infra-cfdns/internal/config"
	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract/contracttest"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/dns"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/persistence"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/state"
)

const shopSpec = `{"example.com": {"shop": ["CM", "CU"]}}`

type fakeSource struct {
	byVersion map[entity.IPVersion]entity.Candidates
	errs      map[entity.IPVersion]error
	calls     int
}

func (f *fakeSource) FetchCandidates(ctx context.Context, version entity.IPVersion) (entity.Candidates, error) {
	f.calls++
	if err := f.errs[version]; err != nil {
		return nil, err
	}
	return f.byVersion[version], nil
}

func candidates(line entity.Line, values ...string) []entity.CandidateIP {
	out := make([]entity.CandidateIP, 0, len(values))
	for _, v := range values {
		out = append(out, entity.CandidateIP{IP: v, Line: line})
	}
	return out
}

func newSource() *fakeSource {
	return &fakeSource{byVersion: map[entity.IPVersion]entity.Candidates{
		entity.IPVersion4: {
			entity.LineMobile: candidates(entity.LineMobile, "1.1.1.1", "1.1.1.2"),
			entity.LineUnicom: candidates(entity.LineUnicom, "2.2.2.1", "2.2.2.2"),
		},
	}}
}

type harness struct {
	ctx      *Context
	out      *bytes.Buffer
	provider *contracttest.Provider
	source   *fakeSource
	created  int
	lockFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, name := range []string{"SECRET_ID", "SECRET_KEY", "DOMAIN_INFO", "DOMAIN_INFO_FILE", "KEY"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	h := &harness{
		out:      &bytes.Buffer{},
		provider: contracttest.New(),
		source:   newSource(),
		lockFile: filepath.Join(t.TempDir(), "cfdns.lock"),
	}
	factory := dns.NewFactory()
	factory.Register(entity.ISPTypeAliyun, func(isp *entity.ISP) (dns.Provider, error) {
		h.created++
		return h.provider, nil
	})
	h.ctx = &Context{
		In:            strings.NewReader(""),
		Out:           h.out,
		Providers:     factory,
		Targets:       persistence.NewTargetLoader(),
		NewCandidates: func(*config.Settings) contract.CandidateSource { return h.source },
		Rand:          rand.New(rand.NewPCG(9, 9)),
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := newRootCommand(h.ctx)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func (h *harness) sync(extra ...string) error {
	args := append([]string{"aliyun", "-i", "id", "-k", "key", "--lock-file", h.lockFile}, extra...)
	return h.run(args...)
}

func TestSync_EndToEnd(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.sync("-4", "-d", shopSpec))

	assert.Equal(t, 1, h.created)
	assert.Equal(t, 4, h.provider.CreateCalls)
	assert.ElementsMatch(t, []string{"2.2.2.1", "2.2.2.2"},
		h.provider.Values("example.com", "shop", entity.DNSRecordTypeA, entity.LineUnicom))
	assert.Contains(t, h.out.String(), "Fake Sync Summary")
	assert.Contains(t, h.out.String(), "4 created, 0 updated, 0 unchanged, 0 failed")

	h.out.Reset()
	h.provider.ResetCalls()
	require.NoError(t, h.sync("-4", "-d", shopSpec))
	assert.Equal(t, 0, h.provider.MutatingCalls())
	assert.Contains(t, h.out.String(), "0 created, 0 updated, 4 unchanged, 0 failed")
}

func TestSync_DomainFileFromEnv(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "domains.json")
	require.NoError(t, os.WriteFile(path, []byte(shopSpec), 0o600))
	t.Setenv("DOMAIN_INFO_FILE", path)

	require.NoError(t, h.sync("-4", "--dry-run"))
	assert.Equal(t, 0, h.provider.MutatingCalls())
	assert.Contains(t, h.out.String(), "(dry run)")
}

func TestSync_ConfigErrorsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no target", args: []string{"-4"}, wantErr: domain.ErrConfigNotFound},
		{name: "no ip version", args: []string{"-d", shopSpec}, wantErr: domain.ErrConfigValidateFail},
		{name: "unknown line token", args: []string{"-4", "-d", `{"example.com": {"shop": ["XX"]}}`}, wantErr: domain.ErrInvalidLine},
		{name: "malformed json", args: []string{"-4", "-d", `{"example.com":`}, wantErr: domain.ErrConfigParseFailed},
		{name: "missing file", args: []string{"-4", "-f", "/nonexistent/domains.json"}, wantErr: domain.ErrConfigNotFound},
		{name: "bad ttl", args: []string{"-4", "-d", shopSpec, "--ttl", "0"}, wantErr: domain.ErrInvalidTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.sync(tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, h.created)
			assert.Equal(t, 0, h.source.calls)
		})
	}

	t.Run("missing credentials", func(t *testing.T) {
		h := newHarness(t)
		err := h.run("aliyun", "-4", "-d", shopSpec, "--lock-file", h.lockFile)
		assert.ErrorIs(t, err, domain.ErrMissingCredential)
		assert.Equal(t, 0, h.created)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		h := newHarness(t)
		err := h.run("route53", "-i", "id", "-k", "key", "-4", "-d", shopSpec)
		assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
	})

	t.Run("inline and file together", func(t *testing.T) {
		h := newHarness(t)
		err := h.sync("-4", "-d", shopSpec, "-f", "domains.json")
		assert.Error(t, err)
		assert.Equal(t, 0, h.created)
	})
}

func TestSync_LineFailureFailsRun(t *testing.T) {
	h := newHarness(t)
	h.provider.FailLine = entity.LineMobile

	err := h.sync("-4", "-d", shopSpec)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDNSError)
	assert.Equal(t, 2, h.provider.CreateCalls, "unicom still converges")
	assert.Contains(t, h.out.String(), "2 created, 0 updated, 0 unchanged, 1 failed")
	assert.Contains(t, h.out.String(), "x shop.example.com [mobile]")
}

func TestSync_SkippedVersionIsNotFailure(t *testing.T) {
	h := newHarness(t)
	h.source.errs = map[entity.IPVersion]error{entity.IPVersion6: domain.ErrRecommendationUnavailable}

	require.NoError(t, h.sync("-4", "-6", "-d", shopSpec))
	assert.Equal(t, 2, h.source.calls)
	assert.Contains(t, h.out.String(), "v6 skipped")
}

func TestSync_RunLocked(t *testing.T) {
	h := newHarness(t)
	held := state.NewRunLock(h.lockFile)
	require.NoError(t, held.Acquire())
	defer held.Release()

	err := h.sync("-4", "-d", shopSpec)
	assert.ErrorIs(t, err, domain.ErrRunLocked)
	assert.Equal(t, 0, h.created)
}

func TestDomainsCommand(t *testing.T) {
	h := newHarness(t)
	h.provider.Domains = []entity.Domain{{Name: "example.com", RecordCount: 12}}

	require.NoError(t, h.run("domains", "aliyun", "-i", "id", "-k", "key"))
	assert.Contains(t, h.out.String(), "example.com")
	assert.Contains(t, h.out.String(), "records: 12")
}

func TestRecordsCommand(t *testing.T) {
	h := newHarness(t)
	h.provider.Seed("example.com",
		entity.Record{SubDomain: "shop", Type: entity.DNSRecordTypeA, Line: entity.LineMobile, Value: "1.1.1.1", TTL: 600},
		entity.Record{SubDomain: "shop", Type: entity.DNSRecordTypeA, Line: entity.LineUnicom, Value: "2.2.2.1", TTL: 600},
		entity.Record{SubDomain: "www", Type: entity.DNSRecordTypeA, Line: entity.LineMobile, Value: "3.3.3.1", TTL: 600},
	)

	require.NoError(t, h.run("records", "aliyun", "example.com", "-i", "id", "-k", "key", "--sub", "shop", "--line", "cm"))
	out := h.out.String()
	assert.Contains(t, out, "shop.example.com")
	assert.Contains(t, out, "1.1.1.1")
	assert.NotContains(t, out, "2.2.2.1")
	assert.NotContains(t, out, "3.3.3.1")

	err := h.run("records", "aliyun", "example.com", "-i", "id", "-k", "key", "--type", "MX")
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestLinesCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("lines", "aliyun", "example.com", "-i", "id", "-k", "key"))
	assert.Contains(t, h.out.String(), "移动")
	assert.Contains(t, h.out.String(), "overseas")
}

func TestPurgeCommand(t *testing.T) {
	seed := func(h *harness) {
		h.provider.Seed("example.com",
			entity.Record{SubDomain: "shop", Type: entity.DNSRecordTypeA, Line: entity.LineMobile, Value: "1.1.1.1"},
			entity.Record{SubDomain: "www", Type: entity.DNSRecordTypeA, Line: entity.LineMobile, Value: "3.3.3.1"},
		)
	}

	t.Run("declined", func(t *testing.T) {
		h := newHarness(t)
		seed(h)
		h.ctx.In = strings.NewReader("n\n")
		require.NoError(t, h.run("purge", "aliyun", "example.com", "shop", "-i", "id", "-k", "key"))
		assert.Equal(t, 0, h.provider.DeleteCalls)
		assert.Contains(t, h.out.String(), "Cancelled.")
	})

	t.Run("confirmed", func(t *testing.T) {
		h := newHarness(t)
		seed(h)
		h.ctx.In = strings.NewReader("y\n")
		require.NoError(t, h.run("purge", "aliyun", "example.com", "shop", "-i", "id", "-k", "key"))
		assert.Equal(t, 1, h.provider.DeleteCalls)
		assert.Empty(t, h.provider.Values("example.com", "shop", entity.DNSRecordTypeA, entity.LineMobile))
		assert.Len(t, h.provider.Values("example.com", "www", entity.DNSRecordTypeA, entity.LineMobile), 1)
	})

	t.Run("auto approve", func(t *testing.T) {
		h := newHarness(t)
		seed(h)
		require.NoError(t, h.run("purge", "aliyun", "example.com", "shop", "--yes", "-i", "id", "-k", "key"))
		assert.Equal(t, 1, h.provider.DeleteCalls)
	})
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", defaultYes: true, want: false},
		{input: "\n", defaultYes: true, want: true},
		{input: "", want: false},
		{input: "y", want: true},
	}
	for _, tt := range tests {
		got := Confirm(strings.NewReader(tt.input), io.Discard, "Proceed?", tt.defaultYes)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
