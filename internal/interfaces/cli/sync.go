package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lite-lake/infra-cfdns/internal/application/usecase"
	"github.com/lite-lake/infra-cfdns/internal/domain/valueobject"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/logger"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/state"
)

// runSync validates everything local before the first network call, then
// runs one reconciliation pass under the run lock.
func runSync(cmd *cobra.Command, ctx *Context, provider string) error {
	s, err := loadSettings(cmd, provider)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	target, err := ctx.Targets.Load(s.Domain, s.DomainFile)
	if err != nil {
		return err
	}
	scope, err := s.ParsedScope()
	if err != nil {
		return err
	}

	lock := state.NewRunLock(s.LockFile)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	dnsProvider, err := ctx.Providers.Create(s.ISP())
	if err != nil {
		return err
	}

	runCtx := logger.WithRunID(cmd.Context(), logger.NewRunID())
	uc := usecase.NewSyncUseCase(&usecase.SyncConfig{
		Provider:    dnsProvider,
		Candidates:  ctx.NewCandidates(s),
		Target:      target,
		Versions:    s.IPVersions(),
		RecordCount: s.RecordCount,
		TTL:         s.TTL,
		Scope:       scope,
		DryRun:      s.DryRun,
		Rand:        ctx.Rand,
	})
	result := uc.Run(runCtx)

	printSummary(ctx.Out, dnsProvider.Name(), result, s.DryRun)
	logger.LogMetrics(runCtx)

	if err := result.Err(); err != nil {
		return fmt.Errorf("%d line(s) failed: %w", len(result.Plan.Failures()), err)
	}
	return nil
}

func printSummary(w io.Writer, provider string, result *usecase.SyncResult, dryRun bool) {
	title := cases.Title(language.English)
	heading := title.String(provider) + " Sync Summary"
	if dryRun {
		heading += " (dry run)"
	}
	fmt.Fprintln(w, TitleStyle.Render(heading))

	for _, v := range result.Versions {
		if v.Skipped {
			fmt.Fprintf(w, "  %s\n", WarningStyle.Render(fmt.Sprintf("%s skipped: %v", v.Version, v.Err)))
			continue
		}
		fmt.Fprintf(w, "  %s\n", HelpStyle.Render(fmt.Sprintf("%s: %d candidate ips", v.Version, v.Candidates)))
	}

	for _, ch := range result.Plan.Changes() {
		fmt.Fprintf(w, "  %s\n", changeStyle(ch.Type()).Render(formatChange(ch)))
	}
	for _, f := range result.Plan.Failures() {
		fmt.Fprintf(w, "  %s\n", ErrorStyle.Render(formatFailure(f)))
	}

	counts := fmt.Sprintf("%d created, %d updated, %d unchanged, %d failed",
		result.Plan.Count(valueobject.ChangeTypeCreate),
		result.Plan.Count(valueobject.ChangeTypeUpdate),
		result.Plan.Count(valueobject.ChangeTypeNoop),
		len(result.Plan.Failures()))
	if result.Plan.HasFailures() {
		fmt.Fprintln(w, ErrorStyle.Render(counts))
		return
	}
	fmt.Fprintln(w, SuccessStyle.Render(counts))
}

// formatFailure names the failed line like formatChange names records.
// Failures recorded before any pair started carry no name.
func formatFailure(f valueobject.LineFailure) string {
	if f.FQDN() == "" {
		return fmt.Sprintf("x %v", f.Err)
	}
	if f.Line == "" {
		return fmt.Sprintf("x %s: %v", f.FQDN(), f.Err)
	}
	return fmt.Sprintf("x %s [%s]: %v", f.FQDN(), f.Line, f.Err)
}

func formatChange(ch *valueobject.Change) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-28s %-4s %-8s %s", changePrefix(ch.Type()), ch.FQDN(), ch.RecordType(), ch.Line(), ch.Value())
	if ch.OldValue() != "" {
		fmt.Fprintf(&b, " (was %s)", ch.OldValue())
	}
	if ch.RecordID() != "" {
		fmt.Fprintf(&b, " id=%s", ch.RecordID())
	}
	if ch.Reason() != "" {
		fmt.Fprintf(&b, " [%s]", ch.Reason())
	}
	return b.String()
}
