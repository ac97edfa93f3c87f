package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"edgeinsight-backend/config"
	"edgeinsight-backend/internal/analysis"
	"edgeinsight-backend/internal/model"
	"edgeinsight-backend/internal/parser"
	"edgeinsight-backend/internal/service"
)

var (
	outputFormat string
	debug        bool
	localOnly    bool
	statsColumn  string
)

var rootCmd = &cobra.Command{
	Use:   "edgeinsight",
	Short: "Ask questions about a CSV, Excel or JSON file from the terminal",
	Long: `edgeinsight runs the EdgeInsight analysis engine against a file on disk.
It reads the same .env and environment keys as the server; when LLM_API_KEY is set,
analyze asks the Qwen model and falls back to the local rule engine otherwise.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !debug {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file> <question>",
	Short: "Answer a question about the file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		question := strings.TrimSpace(args[1])
		if question == "" {
			return errors.New("question must not be empty")
		}

		if !localOnly {
			if answer, ok := askRemote(cmd.Context(), question, ds); ok {
				return render(cmd.OutOrStdout(), answer)
			}
		}
		answer := analysis.Route(question, ds)
		return render(cmd.OutOrStdout(), cliAnswer{
			Source:   model.SourceLocal,
			Category: string(answer.Category),
			Content:  answer.Content,
			Insights: answer.Insights,
			Charts:   answer.Charts,
		})
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <file>",
	Short: "Print the default chart set with its plotted data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		charts := analysis.RecommendCharts(ds)
		out := make([]analysis.ChartData, 0, len(charts))
		for _, spec := range charts {
			data, err := analysis.BuildChartData(ds, spec)
			if err != nil {
				return fmt.Errorf("chart %q: %w", spec.Title, err)
			}
			out = append(out, data)
		}
		return render(cmd.OutOrStdout(), out)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Print column types and statistics of every numeric column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset(args[0])
		if err != nil {
			return err
		}
		schema := analysis.DetectColumnTypes(ds.Rows, ds.Columns)
		report := statsReport{
			Dataset:  ds.Name,
			RowCount: ds.RowCount(),
			Columns:  schema,
			Stats:    map[string]analysis.Stats{},
		}

		columns := schema.Numeric()
		if statsColumn != "" {
			if _, ok := schema.TypeOf(statsColumn); !ok {
				return fmt.Errorf("%w: %s", model.ErrUnknownField, statsColumn)
			}
			columns = []string{statsColumn}
		}
		for _, col := range columns {
			report.Stats[col] = analysis.CalculateStats(ds.Rows, col)
		}
		return render(cmd.OutOrStdout(), report)
	},
}

type cliAnswer struct {
	Source   model.AnswerSource `json:"source" yaml:"source"`
	Category string             `json:"category,omitempty" yaml:"category,omitempty"`
	Content  string             `json:"content" yaml:"content"`
	Insights []string           `json:"insights,omitempty" yaml:"insights,omitempty"`
	Charts   []model.ChartSpec  `json:"charts,omitempty" yaml:"charts,omitempty"`
}

type statsReport struct {
	Dataset  string                    `json:"dataset" yaml:"dataset"`
	RowCount int                       `json:"rowCount" yaml:"rowCount"`
	Columns  analysis.Schema           `json:"columns" yaml:"columns"`
	Stats    map[string]analysis.Stats `json:"stats" yaml:"stats"`
}

func loadDataset(path string) (*model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.NewDatasetParser().ParseFile(filepath.Base(path), f)
}

// askRemote reports false when no key is configured or the call fails, so the
// caller can answer locally.
func askRemote(ctx context.Context, question string, ds *model.Dataset) (cliAnswer, bool) {
	cfg, err := config.NewConfig()
	if !debug {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	if err != nil || cfg.LLM.APIKey == "" {
		return cliAnswer{}, false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	llm := service.NewQwenLLMService(cfg)
	content, err := llm.Analyze(ctx, "", question, ds.Info(cfg.Analysis.RequestSampleRows))
	if err != nil {
		fmt.Fprintf(os.Stderr, "remote analysis failed, answering locally: %v\n", err)
		return cliAnswer{}, false
	}
	return cliAnswer{
		Source:   model.SourceRemote,
		Content:  content,
		Insights: analysis.ExtractInsights(content),
		Charts:   analysis.SuggestCharts(question, ds),
	}, true
}

func render(w io.Writer, v interface{}) error {
	switch outputFormat {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported --output: %s", outputFormat)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "output format: yaml or json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	analyzeCmd.Flags().BoolVar(&localOnly, "local", false, "skip the remote model and use the local rule engine")
	statsCmd.Flags().StringVar(&statsColumn, "column", "", "only report this column")

	rootCmd.AddCommand(analyzeCmd, recommendCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}
