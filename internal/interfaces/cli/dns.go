package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
)

type recordFilters struct {
	SubDomain string
	Type      string
	Line      string
}

func newDomainsCommand(ctx *Context) *cobra.Command {
	return &cobra.Command{
		Use:       "domains <provider>",
		Short:     "List domains",
		Long:      "List the domains hosted on the provider account.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: providerNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := openProvider(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			domains, err := provider.ListDomains(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(ctx.Out, TitleStyle.Render("DOMAINS:"))
			if len(domains) == 0 {
				fmt.Fprintln(ctx.Out, "  (none)")
				return nil
			}
			for _, d := range domains {
				fmt.Fprintf(ctx.Out, "  %-30s records: %-5d created: %s\n", d.Name, d.RecordCount, formatDate(d.CreatedAt))
			}
			return nil
		},
	}
}

func newRecordsCommand(ctx *Context) *cobra.Command {
	var filters recordFilters

	cmd := &cobra.Command{
		Use:   "records <provider> <domain>",
		Short: "List DNS records",
		Long:  "List the records of a domain, optionally narrowed by sub domain, type and line.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.toFilter()
			if err != nil {
				return err
			}
			provider, err := openProvider(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			records, err := provider.GetRecords(cmd.Context(), args[1], filter)
			if err != nil {
				return err
			}

			fmt.Fprintln(ctx.Out, TitleStyle.Render("DNS RECORDS:"))
			if len(records) == 0 {
				fmt.Fprintln(ctx.Out, "  (none)")
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(ctx.Out, "  %-12s %-30s %-5s %-10s -> %-40s (ttl: %d)\n", r.ID, r.FullName(args[1]), r.Type, r.Line, r.Value, r.TTL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filters.SubDomain, "sub", "", "Filter by sub domain")
	cmd.Flags().StringVar(&filters.Type, "type", "", "Filter by record type (A/AAAA)")
	cmd.Flags().StringVar(&filters.Line, "line", "", "Filter by line (CM/CU/CT/AB/DEF or a line name)")

	return cmd
}

func newLinesCommand(ctx *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "lines <provider> <domain>",
		Short: "List resolvable lines",
		Long:  "List the lines the provider accepts for a domain.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := openProvider(cmd, ctx, args[0])
			if err != nil {
				return err
			}
			lister, ok := provider.(contract.LineLister)
			if !ok {
				return fmt.Errorf("provider %s cannot list lines", provider.Name())
			}
			lines, err := lister.ListLines(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			fmt.Fprintln(ctx.Out, TitleStyle.Render("LINES:"))
			for _, l := range lines {
				fmt.Fprintf(ctx.Out, "  %-16s %-16s %s\n", l.ID, l.Name, l.Label)
			}
			return nil
		},
	}
}

func newPurgeCommand(ctx *Context) *cobra.Command {
	var autoApprove bool

	cmd := &cobra.Command{
		Use:   "purge <provider> <domain> <sub>",
		Short: "Delete every record of a sub domain",
		Long:  "Delete all records of one sub domain, across types and lines.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			domainName, sub := args[1], args[2]
			if err := entity.ValidateDomainName(domainName); err != nil {
				return err
			}
			if err := entity.ValidateSubDomain(sub); err != nil {
				return err
			}
			provider, err := openProvider(cmd, ctx, args[0])
			if err != nil {
				return err
			}

			fqdn := sub + "." + domainName
			if !autoApprove && !Confirm(ctx.In, ctx.Out, WarningStyle.Render("Delete all records of "+fqdn+"?"), false) {
				fmt.Fprintln(ctx.Out, "Cancelled.")
				return nil
			}

			ok, err := provider.DeleteSubDomainRecords(cmd.Context(), domainName, sub)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("provider did not confirm deleting %s", fqdn)
			}
			fmt.Fprintln(ctx.Out, ChangeDeleteStyle.Render("- "+fqdn))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

func openProvider(cmd *cobra.Command, ctx *Context, name string) (contract.DNSProvider, error) {
	s, err := loadSettings(cmd, name)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateProvider(); err != nil {
		return nil, err
	}
	return ctx.Providers.Create(s.ISP())
}

func (f recordFilters) toFilter() (contract.RecordFilter, error) {
	filter := contract.RecordFilter{SubDomain: f.SubDomain}
	switch t := entity.DNSRecordType(strings.ToUpper(f.Type)); t {
	case "":
	case entity.DNSRecordTypeA, entity.DNSRecordTypeAAAA:
		filter.Type = t
	default:
		return filter, fmt.Errorf("%w: %q", domain.ErrInvalidType, f.Type)
	}
	if f.Line != "" {
		if line, err := entity.ParseLineToken(strings.ToUpper(f.Line)); err == nil {
			filter.Line = line
		} else {
			filter.Line = entity.Line(f.Line)
		}
	}
	return filter, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}
