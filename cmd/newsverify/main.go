// Command newsverify runs the content-verification agent as an HTTP service
// or once from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "newsverify",
		Short:         "Tool-using agent that rates news content as real, fake or uncertain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the analysis workers",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyse one piece of content and print the result as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalyze,
	}

	transcriptCmd = &cobra.Command{
		Use:   "transcript <file>",
		Short: "Print a transcript saved by analyze --transcript",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranscript,
	}

	toolsCmd = &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog with input schemas",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML config file (default: ./newsverify.yaml when present)")

	analyzeCmd.Flags().StringP("file", "f", "", "Read the content from a file ('-' for stdin)")
	analyzeCmd.Flags().StringP("url", "u", "", "Fetch the content from a URL")
	analyzeCmd.Flags().String("transcript", "", "Write the conversation transcript to this JSON file")

	rootCmd.AddCommand(serveCmd, analyzeCmd, transcriptCmd, toolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
