package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/export"
	"github.com/linguaops/payrecon/internal/reconcile"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Normalize a billing export and write it as tab-separated text",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		runExport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("input", "i", "-", "billing export: '-' for stdin, a path, s3://bucket/key or upload:<key>")
	exportCmd.Flags().StringP("template", "t", "", "mapping template name or id (default is the default template)")
	exportCmd.Flags().StringP("output", "o", "", "output file, '-' for stdout (default is a temp file)")
	exportCmd.Flags().StringP("bucket", "b", "", "reconcile against the team roster and export one bucket")
}

func runExport(cmd *cobra.Command) {
	ctx := context.Background()

	e := setup("export")
	defer e.close()
	logger := e.logger

	text, err := e.readInput(ctx, flagString(cmd, "input"))
	if err != nil {
		logger.Fatal("reading input", zap.Error(err))
	}

	p, err := e.pipeline(ctx, flagString(cmd, "template"))
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	result, err := p.Run(ctx, text)
	if err != nil {
		logger.Fatal("processing input", zap.Error(err))
	}

	write := func(w io.Writer) error { return export.WriteRecords(w, result.Records) }
	pattern := "payrecon-records-*.tsv"

	if name := flagString(cmd, "bucket"); name != "" {
		bucket, ok := reconcile.ParseBucket(name)
		if !ok {
			logger.Fatal("unknown bucket", zap.String("bucket", name), zap.Any("known", reconcile.Buckets))
		}

		client, err := e.platformClient()
		if err != nil {
			logger.Fatal("loading platform token", zap.Error(err))
		}
		roster, err := client.TeamRoster(ctx)
		if err != nil {
			logger.Fatal("fetching platform roster", zap.Error(err))
		}

		group := result.Reconcile(roster).Group(bucket)
		write = func(w io.Writer) error { return export.WriteBucket(w, group) }
		pattern = fmt.Sprintf("payrecon-%s-*.tsv", bucket)
	}

	switch output := flagString(cmd, "output"); output {
	case "":
		filename, err := export.ToTmpFile(pattern, write)
		if err != nil {
			logger.Fatal("export results to file", zap.Error(err))
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
	case "-":
		if err := write(cmd.OutOrStdout()); err != nil {
			logger.Fatal("writing export", zap.Error(err))
		}
	default:
		if err := writeFile(output, write); err != nil {
			logger.Fatal("export results to file", zap.Error(err))
		}
		logger.Info("dumping result to file", zap.String("filename", output))
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
