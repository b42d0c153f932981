package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petasbytes/newsverify/internal/runner"
	"github.com/petasbytes/newsverify/internal/store"
	"github.com/petasbytes/newsverify/memory"
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, _ := cmd.Flags().GetString("file")
	rawURL, _ := cmd.Flags().GetString("url")
	transcriptPath, _ := cmd.Flags().GetString("transcript")

	a, err := loadApp(nil)
	if err != nil {
		return err
	}

	text, err := readInput(cmd.InOrStdin(), args, file)
	if err != nil {
		return err
	}
	if rawURL != "" {
		if text, err = a.fetcher().Fetch(ctx, rawURL); err != nil {
			return fmt.Errorf("failed to fetch URL: %w", err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to analyse: pass text, --file or --url")
	}

	// Previous analyses feed the fact-search and cross-reference tools.
	st, err := store.Open(ctx, a.cfg.Store.Driver, a.cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	r, err := a.runner(a.registry(st), nil)
	if err != nil {
		return err
	}
	res, transcript := r.Run(ctx, text, runner.RunIDs{})

	if transcriptPath != "" {
		if err := memory.SaveConversation(transcriptPath, transcript); err != nil {
			a.logger.Warn("failed to save transcript", "path", transcriptPath, "error", err)
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// readInput takes the positional argument, else --file ("-" is stdin).
func readInput(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", errors.New("pass either a text argument or --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	}
	return "", nil
}
