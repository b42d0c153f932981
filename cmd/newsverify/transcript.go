package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petasbytes/newsverify/memory"
)

func runTranscript(cmd *cobra.Command, args []string) error {
	msgs, err := memory.LoadConversation(args[0])
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	if msgs == nil {
		return fmt.Errorf("no transcript at %s", args[0])
	}
	printTranscript(cmd.OutOrStdout(), msgs)
	return nil
}

func printTranscript(w io.Writer, msgs []memory.Message) {
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%d] %s\n", i, strings.ToUpper(m.Role))
		fmt.Fprintln(w, m.Content)
	}
}
