package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/restomaps/internal/annotate"
	"github.com/ppiankov/restomaps/internal/lexicon"
	"github.com/spf13/cobra"
)

var (
	analyzeRating  int
	analyzeExplain bool
	analyzeEnglish bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Annotate a single review text",
	Long: `Analyze prints the annotation of one review as JSON:
- sentiment score
- verdict
- topical tags

The text is taken from the arguments, or from stdin when none are given
(or the only argument is "-"). The rating is carried through unchanged and
never affects the result.

Example:
  restomaps analyze "Очень вкусно, но официант грубый"
  echo "Цены завышены" | restomaps analyze --explain --english`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeRating, "rating", 0, "user star rating 1-5 to carry through (0 for none)")
	analyzeCmd.Flags().BoolVar(&analyzeExplain, "explain", false, "include the sentiment score breakdown")
	analyzeCmd.Flags().BoolVar(&analyzeEnglish, "english", false, "include English labels for verdict and tags, and tags grouped by category")
}

// analyzeOutput is the JSON document printed by analyze
type analyzeOutput struct {
	annotate.Result
	VerdictEnglish string                               `json:"verdict_en,omitempty"`
	TagsEnglish    []string                             `json:"tags_en,omitempty"`
	TagsByCategory map[annotate.Category][]annotate.Tag `json:"tags_by_category,omitempty"`
	Explain        *annotate.Breakdown                  `json:"explain,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := analyzeInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var rating *int
	if analyzeRating != 0 {
		if analyzeRating < 1 || analyzeRating > 5 {
			return fmt.Errorf("--rating must be between 1 and 5, got %d", analyzeRating)
		}
		rating = &analyzeRating
	}

	lex, err := lexicon.LoadWithOverlay(appConfig.Annotate.LexiconPath)
	if err != nil {
		return fmt.Errorf("load lexicon: %w", err)
	}
	processor := annotate.NewProcessor(lex)

	out := analyzeOutput{Result: processor.Process(text, rating)}
	if analyzeEnglish {
		out.VerdictEnglish = out.Verdict.English()
		out.TagsEnglish = out.EnglishTags()
		out.TagsByCategory = annotate.ByCategory(out.Tags)
	}
	if analyzeExplain {
		b := processor.Explain(text)
		out.Explain = &b
	}

	return writeJSON(cmd.OutOrStdout(), out)
}

func analyzeInput(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
