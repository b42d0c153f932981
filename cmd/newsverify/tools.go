package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/petasbytes/newsverify/internal/store"
)

type catalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

func runTools(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	// The catalog does not depend on history; an empty store is enough.
	defs := a.registry(store.NewMemory()).Definitions()
	out := make([]catalogEntry, 0, len(defs))
	for _, d := range defs {
		out = append(out, catalogEntry{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
