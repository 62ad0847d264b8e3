package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/mapping"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage column mapping templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved templates",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup("templates list")
		defer e.close()

		templates, err := e.templateService().List(context.Background())
		if err != nil {
			e.logger.Fatal("listing templates", zap.Error(err))
		}

		printJSON(cmd, templateViews(templates))
	},
}

var templatesSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Save a template from --column pairs and/or the headers of --from",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e := setup("templates save")
		defer e.close()

		m, err := templateMapping(ctx, cmd, e)
		if err != nil {
			e.logger.Fatal("building the mapping", zap.Error(err))
		}
		if m.IsEmpty() {
			e.logger.Fatal("mapping is empty", zap.String("hint", "pass --column field=header or --from with a file to detect columns from"))
		}

		d := mapping.Defaults{
			ServiceType: flagString(cmd, "service-type"),
			UnitsType:   flagString(cmd, "units-type"),
			Currency:    flagString(cmd, "currency"),
		}

		t, err := e.templateService().Save(ctx, args[0], m, d, flagBool(cmd, "default"))
		if err != nil {
			e.logger.Fatal("saving template", zap.Error(err))
		}

		printJSON(cmd, templateViews([]*mapping.Template{t}))
	},
}

var templatesDefaultCmd = &cobra.Command{
	Use:   "default NAME|ID",
	Short: "Make a template the default one",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		e := setup("templates default")
		defer e.close()

		svc := e.templateService()
		t, err := svc.Find(ctx, args[0])
		if err != nil {
			e.logger.Fatal("finding template", zap.Error(err))
		}
		if err := svc.SetDefault(ctx, t.ID); err != nil {
			e.logger.Fatal("setting default template", zap.Error(err))
		}
	},
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete NAME|ID",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		e := setup("templates delete")
		defer e.close()

		svc := e.templateService()
		t, err := svc.Find(ctx, args[0])
		if err != nil {
			e.logger.Fatal("finding template", zap.Error(err))
		}
		if err := svc.Delete(ctx, t.ID); err != nil {
			e.logger.Fatal("deleting template", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd, templatesSaveCmd, templatesDefaultCmd, templatesDeleteCmd)

	templatesSaveCmd.Flags().StringToStringP("column", "c", nil, "field=header pairs, e.g. invoiceCode=\"Invoice No\"")
	templatesSaveCmd.Flags().StringP("from", "f", "", "input to auto-detect columns from (same references as run --input)")
	templatesSaveCmd.Flags().String("service-type", "", "default service type")
	templatesSaveCmd.Flags().String("units-type", "", "default units type")
	templatesSaveCmd.Flags().String("currency", "", "default currency")
	templatesSaveCmd.Flags().Bool("default", false, "make the template the default one")
}

// templateMapping detects columns from --from, then applies --column pairs on top.
func templateMapping(ctx context.Context, cmd *cobra.Command, e *env) (mapping.FieldMapping, error) {
	m := mapping.FieldMapping{}

	if from := flagString(cmd, "from"); from != "" {
		text, err := e.readInput(ctx, from)
		if err != nil {
			return nil, err
		}
		table := ingest.Parse(text)
		m = mapping.Detect(table.Headers)
		e.logger.Info("columns detected", zap.Int("fields", len(m)), zap.Strings("headers", table.Headers))
	}

	columns, err := cmd.Flags().GetStringToString("column")
	if err != nil {
		return nil, err
	}
	manual, unknown := parseColumns(columns)
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown fields: %v", unknown)
	}

	return m.Overlay(manual), nil
}

type templateView struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	IsDefault  bool              `json:"isDefault"`
	Mapping    map[string]string `json:"mapping"`
	Defaults   mapping.Defaults  `json:"defaults"`
	LastUsedAt string            `json:"lastUsedAt,omitempty"`
}

func templateViews(templates []*mapping.Template) []templateView {
	views := make([]templateView, 0, len(templates))
	for _, t := range templates {
		v := templateView{
			ID:        t.ID,
			Name:      t.Name,
			IsDefault: t.IsDefault,
			Mapping:   map[string]string{},
			Defaults:  t.Defaults,
		}
		for f, column := range t.Mapping {
			v.Mapping[string(f)] = column
		}
		if t.LastUsedAt != nil {
			v.LastUsedAt = t.LastUsedAt.Format("2006-01-02 15:04")
		}
		views = append(views, v)
	}
	return views
}

func printJSON(cmd *cobra.Command, v any) {
	// do not bother error since the views are plain data
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
}

func flagString(cmd *cobra.Command, name string) string {
	flag := cmd.Flag(name)
	if flag == nil {
		return ""
	}
	return flag.Value.String()
}
