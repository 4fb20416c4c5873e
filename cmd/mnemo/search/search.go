// Package searchcmder provides the search command for hybrid retrieval
// over stored memory records.
package searchcmder

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemohq/mnemo/cmd/mnemo/stack"
	usecmder "github.com/mnemohq/mnemo/cmd/mnemo/use"
	"github.com/mnemohq/mnemo/pkg/config"
	"github.com/mnemohq/mnemo/pkg/logger"
	"github.com/mnemohq/mnemo/pkg/record"
	"github.com/mnemohq/mnemo/pkg/search"
	"github.com/mnemohq/mnemo/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	variantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

type searchCommander struct {
	query string
	topK  int
	quiet bool

	variants   []string
	lexical    bool
	sqlitePath string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const searchLongDesc string = `Search stored memory records.

Runs hybrid retrieval under the selected tenant: a full-text pass over the
records' searchable text and a vector pass over their embeddings, fused
into one ranked list. Records stored without embeddings appear through the
full-text pass only.

Use --variant to restrict results to specific record variants, and
--lexical to skip the vector pass entirely (no embedder required).

Use --quiet to output only record ids, one per line, for piping.

Example:
  mnemo search "what did we decide about the roadmap"
  mnemo search "database credentials" --variant vault
  mnemo search "meeting notes" --variant episodic --variant resource --top 10
  mnemo search "grocery list" --quiet`

const searchShortDesc string = "Search memory records"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd)
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", search.DefaultTopK, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only record ids, one per line (for piping)")
	cmd.Flags().StringArrayVarP(&cmder.variants, "variant", "v", nil, "Restrict to a record variant (repeatable)")
	cmd.Flags().BoolVar(&cmder.lexical, "lexical", false, "Full-text pass only, skip the vector pass")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite database")

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewZap(c.debug)
	defer func() { _ = c.logger.Sync() }()

	tc, err := usecmder.LoadTenantContext(c.configDir)
	if err != nil {
		return err
	}

	variants, err := parseVariants(c.variants)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := stack.Open(cfg, stack.Options{SQLitePath: c.sqlitePath, Lexical: c.lexical}, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			c.logger.Warn("closing stack", zap.Error(cerr))
		}
	}()

	results, err := s.Engine.Search(cmd.Context(), tc, c.query, variants, c.topK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range results {
			fmt.Println(result.Record.ID)
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		idStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, result := range results {
		c.printResult(i+1, result)
	}

	return nil
}

func (c *searchCommander) printResult(rank int, result search.Result) {
	fmt.Printf("  %s  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		idStyle.Render(result.Record.ID),
		variantStyle.Render(string(result.Record.Variant)),
		scoreStyle.Render(fmt.Sprintf("score %.3f (text %.3f, vector %.3f)",
			result.Score, result.LexicalScore, result.VectorScore)),
	)

	if path := result.Record.TreePath.String(); path != "" {
		fmt.Printf("      %s\n", pathStyle.Render(path))
	}

	preview := utils.Truncate(strings.ReplaceAll(result.Record.Payload.SearchText(), "\n", " "), 100)
	fmt.Printf("      %s\n\n", previewStyle.Render(preview))
}

func parseVariants(names []string) ([]record.Variant, error) {
	variants := make([]record.Variant, 0, len(names))
	for _, name := range names {
		v := record.Variant(strings.ToLower(strings.TrimSpace(name)))
		if !v.Known() {
			return nil, fmt.Errorf("unknown variant %q", name)
		}
		variants = append(variants, v)
	}
	return variants, nil
}
