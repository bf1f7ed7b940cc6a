package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	answerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
)

var (
	askTopK    int
	askSource  string
	askSession string
	askMMR     bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the ingested documents",
	Long: `Retrieve the passages closest to the question and answer from them.

Examples:
  ragchat ask "How do I reset my password?"
  ragchat ask "Summarize chapter 2" --source book.pdf --top-k 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "Number of passages to retrieve (default from config)")
	askCmd.Flags().StringVarP(&askSource, "source", "s", "", "Restrict retrieval to one source document")
	askCmd.Flags().StringVar(&askSession, "session", "", "Session id whose last ingested source is the default filter")
	askCmd.Flags().BoolVar(&askMMR, "mmr", false, "Request diverse retrieval")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	req := chatuc.Request{
		Question:  strings.Join(args, " "),
		TopK:      askTopK,
		Source:    askSource,
		SessionID: askSession,
	}
	if cmd.Flags().Changed("mmr") {
		req.MMR = &askMMR
	}

	ans, err := a.chat.Chat(ctx, req)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderAnswer(ans))
	return nil
}

func renderAnswer(ans chatuc.Answer) string {
	var b strings.Builder
	b.WriteString(answerStyle.Render(ans.Answer))
	b.WriteString("\n")

	if len(ans.UsedSources) > 0 {
		b.WriteString(titleStyle.Render("Sources"))
		b.WriteString("\n")
		for i, s := range ans.UsedSources {
			b.WriteString(fmt.Sprintf("  [%d] %s\n", i+1, sourceLine(s)))
		}
	}

	meta := fmt.Sprintf("top_k=%d mmr=%t", ans.Extra.TopK, ans.Extra.MMR)
	if ans.Model != nil {
		meta = "model=" + *ans.Model + " " + meta
	}
	if ans.Extra.Source != nil {
		meta += " source=" + *ans.Extra.Source
	}
	b.WriteString(mutedStyle.Render(meta))
	return b.String()
}

func sourceLine(s domchat.SourceChunk) string {
	line := s.Source
	if s.Page != nil {
		line += fmt.Sprintf(" p.%d", *s.Page)
	}
	if s.Distance != nil {
		line += mutedStyle.Render(fmt.Sprintf("  (distance %.3f)", *s.Distance))
	}
	return line
}
