package tools

import "github.com/petasbytes/newsverify/internal/safety"

func invalidArgs(msg string) error {
	return safety.InvalidArgs(msg)
}

func requireString(name, v string) error {
	if v == "" {
		return invalidArgs(name + " is required")
	}
	return nil
}
