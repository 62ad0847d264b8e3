package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/export"
	"github.com/linguaops/payrecon/internal/filtering"
	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/payment"
	"github.com/linguaops/payrecon/internal/pipeline"
	"github.com/linguaops/payrecon/internal/platform"
	"github.com/linguaops/payrecon/internal/reconcile"
)

const (
	PromptYes                 = "Submit all selectable"
	PromptNo                  = "Exit"
	PromptBack                = "back"
	PromptReportByBucket      = "Report by bucket"
	PromptManualSelect        = "Select invoices manually"
	PromptExportBucket        = "Export bucket to file"
	PromptAppendToExcludeFile = "Append all invoices to exclude file"

	dateLayout = "2006-01-02"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo, PromptReportByBucket, PromptManualSelect, PromptExportBucket},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Import a billing export, reconcile it and submit payments",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("input", "i", "-", "billing export: '-' for stdin, a path, s3://bucket/key or upload:<key>")
	runCmd.Flags().StringP("template", "t", "", "mapping template name or id (default is the default template)")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation, submit every selectable invoice")
	runCmd.Flags().BoolP("reconcile", "r", false, "reconcile against the platform roster before submitting")
	runCmd.Flags().String("jobs-from", "", "build the roster from jobs completed since this date (YYYY-MM-DD) instead of the team")
	runCmd.Flags().String("jobs-to", "", "end of the completed jobs period (YYYY-MM-DD, default is today)")
	runCmd.Flags().Bool("keep-invalid", false, "keep invalid invoices in the list for reporting")
	runCmd.Flags().StringP("exclude-file", "e", "", "special file with invoices to exclude. Default is unset.")

	viper.BindPFlag("exclude-file", runCmd.Flags().Lookup("exclude-file"))
}

// session is the state of one run: what is still on the table.
type session struct {
	env        *env
	client     *platform.Client
	result     *pipeline.Result
	reconciled *reconcile.Result
	candidates invoice.Records
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	e := setup("run")
	defer e.close()
	logger := e.logger

	text, err := e.readInput(ctx, cmd.Flag("input").Value.String())
	if err != nil {
		logger.Fatal("reading input", zap.Error(err))
	}

	p, err := e.pipeline(ctx, cmd.Flag("template").Value.String())
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	result, err := p.Run(ctx, text)
	if err != nil {
		logger.Fatal("processing input", zap.Error(err))
	}

	if len(result.Records) == 0 {
		logger.Info("exiting", zap.String("reason", "no invoices found in input"))
		return
	}

	client, err := e.platformClient()
	if err != nil {
		logger.Fatal(
			"loading platform token",
			zap.Error(err),
			zap.String("hint", "set PAYRECON_TOKEN_FILE environment variable or the 'platform.token-file' key in the configuration file"),
		)
	}

	s := &session{env: e, client: client, result: result}

	if flagBool(cmd, "reconcile") {
		roster, err := fetchRoster(ctx, cmd, client)
		if err != nil {
			logger.Fatal("fetching platform roster", zap.Error(err))
		}
		s.reconciled = result.Reconcile(roster)
		for _, b := range reconcile.Buckets {
			if g := s.reconciled.Group(b); g.Len() > 0 && b.Warning() != "" {
				logger.Warn(b.Warning(), zap.String("bucket", b.String()), zap.Int("count", g.Len()))
			}
		}
	}

	filters := prepareFilters(cmd, s.reconciled, logger)
	for _, st := range filters.Describe() {
		logger.Debug("filter", zap.String("name", st.Name), zap.Bool("enabled", st.Enabled), zap.String("reason", st.Reason))
	}

	s.candidates, err = filters.RunFilters(ctx, result.Records)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if len(s.candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no invoices left after filters"))
		return
	}

	action := PromptYes
	for {
		var err error
		if !flagBool(cmd, "auto-approve") {
			items := prompt.Items.([]string)
			if viper.GetString("exclude-file") != "" {
				items = append(items, PromptAppendToExcludeFile)
			}
			menu := prompt
			menu.Items = items
			_, action, err = menu.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		logger.Info("current list of invoices", zap.Int("count", len(s.candidates)), zap.String("total", s.candidates.Total().String()))

		if err := s.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if len(s.candidates) == 0 {
			logger.Info("exiting", zap.String("reason", "no invoices left"))
			return
		}

		if flagBool(cmd, "auto-approve") {
			logger.Info("exiting", zap.String("reason", "auto-approve runs a single submission"), zap.Int("left", len(s.candidates)))
			return
		}
	}
}

func (s *session) handleAction(ctx context.Context, action string) error {
	logger := s.env.logger

	switch action {
	case PromptYes:
		return s.submit(ctx, s.candidates)
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptManualSelect:
		return s.manualSelect(ctx)
	case PromptReportByBucket:
		pretty, _ := json.MarshalIndent(s.report(), "", "  ")
		logger.Info(string(pretty), zap.Int("invoices count", len(s.candidates)))
		return nil
	case PromptExportBucket:
		filename, err := s.exportBucket()
		if err != nil {
			return fmt.Errorf("export results to file: %w", err)
		}
		if filename != "" {
			logger.Info("dumping result to file", zap.String("filename", filename))
		}
		return nil
	case PromptAppendToExcludeFile:
		return s.appendToExcludeFile(s.candidates)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// submit sends records as one batch. A blocked batch is reported and the
// session goes on, since the operator can narrow the selection.
func (s *session) submit(ctx context.Context, records invoice.Records) error {
	logger := s.env.logger

	created, err := s.result.Session.Submit(ctx, s.client, records)
	var blocked *payment.BatchError
	switch {
	case errors.As(err, &blocked):
		for _, p := range blocked.Problems {
			logger.Warn("invoice cannot be paid",
				zap.String("invoice_code", p.Record.InvoiceCode),
				zap.String("resource", p.Record.Resource),
				zap.Strings("reasons", p.Reasons),
			)
		}
		logger.Error("batch blocked", zap.Error(err))
		return nil
	case errors.Is(err, payment.ErrEmptyBatch):
		logger.Warn("nothing to submit")
		return nil
	case err != nil:
		return err
	}

	logger.Info("successfully created payments", zap.Int("count", created), zap.String("total", records.Total().String()))
	s.dropSent()
	return nil
}

func (s *session) dropSent() {
	left := s.candidates[:0:0]
	for _, r := range s.candidates {
		if !r.SentToPlatform {
			left = append(left, r)
		}
	}
	s.candidates = left
}

func (s *session) manualSelect(ctx context.Context) error {
	for {
		items := make([]string, 0, len(s.candidates)+2)
		for _, r := range s.candidates {
			items = append(items, fmt.Sprintf("%s %s / %s %s / %s",
				r.InvoiceCode, r.Resource, r.TotalCost.String(), r.Currency, r.MatchedBy,
			))
		}

		excludeFile := viper.GetString("exclude-file")
		if excludeFile != "" && len(s.candidates) != 0 {
			items = append(items, PromptAppendToExcludeFile)
		}

		invoicePrompt := promptui.Select{
			Label: "Choose an invoice and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := invoicePrompt.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptBack:
			return nil
		case PromptAppendToExcludeFile:
			if err := s.appendToExcludeFile(s.candidates); err != nil {
				return err
			}
		default:
			code := strings.Split(selected, " ")[0]
			r := s.candidates.FindByInvoiceCode(code)
			if r == nil {
				return fmt.Errorf("there is no such invoice %s", code)
			}

			if err := s.submit(ctx, invoice.Records{r}); err != nil {
				return err
			}
		}

		if len(s.candidates) == 0 {
			return nil
		}
	}
}

func (s *session) appendToExcludeFile(records invoice.Records) error {
	excludeFile := viper.GetString("exclude-file")
	if excludeFile == "" {
		return errors.New("exclude file is not configured")
	}

	excluded, err := filtering.LoadExcluded(excludeFile)
	if err != nil {
		return err
	}

	added := excluded.Append(filtering.ExcludedFromRecords(records))

	if err = excluded.ToFile(excludeFile); err != nil {
		return err
	}

	s.env.logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("added", added))

	codes := make(map[string]struct{}, len(excluded.Items))
	for _, code := range excluded.InvoiceCodes() {
		codes[code] = struct{}{}
	}
	left := s.candidates[:0:0]
	for _, r := range s.candidates {
		if _, ok := codes[r.InvoiceCode]; !ok {
			left = append(left, r)
		}
	}
	s.candidates = left
	return nil
}

type bucketReport struct {
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	Warning  string          `json:"warning,omitempty"`
	Invoices []string        `json:"invoices"`
}

// report groups the whole dataset by bucket, or by payability when no roster
// was reconciled.
func (s *session) report() map[string]*bucketReport {
	out := map[string]*bucketReport{}
	if s.reconciled == nil {
		for _, r := range s.result.Records {
			key := "valid"
			if !r.IsValidForPayment {
				key = "invalid"
			}
			if r.SentToPlatform {
				key = "sent"
			}
			addToReport(out, key, r)
		}
		return out
	}

	for _, b := range reconcile.Buckets {
		g := s.reconciled.Group(b)
		out[b.String()] = &bucketReport{
			Count:    g.Len(),
			Total:    g.Total,
			Warning:  b.Warning(),
			Invoices: g.Records().InvoiceCodes(),
		}
	}
	return out
}

func addToReport(out map[string]*bucketReport, key string, r *invoice.Record) {
	rep, ok := out[key]
	if !ok {
		rep = &bucketReport{}
		out[key] = rep
	}
	rep.Count++
	rep.Invoices = append(rep.Invoices, r.InvoiceCode)
	rep.Total = rep.Total.Add(r.TotalCost)
}

// exportBucket asks for a bucket and writes it to a temp file. Without a
// reconciliation the whole dataset is written.
func (s *session) exportBucket() (string, error) {
	if s.reconciled == nil {
		return export.ToTmpFile("payrecon-records-*.tsv", func(w io.Writer) error {
			return export.WriteRecords(w, s.result.Records)
		})
	}

	items := make([]string, 0, len(reconcile.Buckets)+1)
	cursor := 0
	for i, b := range reconcile.Buckets {
		if b == s.reconciled.DefaultTab {
			cursor = i
		}
		items = append(items, fmt.Sprintf("%s (%d)", b, s.reconciled.Group(b).Len()))
	}

	bucketPrompt := promptui.Select{
		Label:     "Choose a bucket to export",
		Items:     append(items, PromptBack),
		CursorPos: cursor,
	}

	_, selected, err := bucketPrompt.Run()
	if err != nil {
		return "", err
	}
	if selected == PromptBack {
		return "", nil
	}

	b, ok := reconcile.ParseBucket(strings.Split(selected, " ")[0])
	if !ok {
		return "", fmt.Errorf("unknown bucket %s", selected)
	}

	return export.ToTmpFile(fmt.Sprintf("payrecon-%s-*.tsv", b), func(w io.Writer) error {
		return export.WriteBucket(w, s.reconciled.Group(b))
	})
}

func fetchRoster(ctx context.Context, cmd *cobra.Command, client *platform.Client) (*platform.Roster, error) {
	from := strings.TrimSpace(cmd.Flag("jobs-from").Value.String())
	if from == "" {
		return client.TeamRoster(ctx)
	}

	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("parsing --jobs-from: %w", err)
	}

	end := time.Now().UTC()
	if to := strings.TrimSpace(cmd.Flag("jobs-to").Value.String()); to != "" {
		end, err = time.Parse(dateLayout, to)
		if err != nil {
			return nil, fmt.Errorf("parsing --jobs-to: %w", err)
		}
	}

	jobs, err := client.CompletedJobs(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return jobs.Roster(), nil
}

func prepareFilters(cmd *cobra.Command, reconciled *reconcile.Result, logger *zap.Logger) *filtering.Filtering {
	f := filtering.New([]filtering.Filter{
		filtering.NewSentToPlatform(logger),
		filtering.NewInvalidForPayment(logger),
		filtering.NewRosterMembership(reconciled, logger),
		filtering.NewExcludeFile(viper.GetString("exclude-file"), logger),
	}, logger)

	if cmd != nil && flagBool(cmd, "keep-invalid") {
		f.DisableByName("invalid_for_payment", "--keep-invalid flag is set")
	}
	return f
}

func flagBool(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)
	return flag != nil && strings.EqualFold(flag.Value.String(), "true")
}
