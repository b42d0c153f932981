package memory_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/petasbytes/newsverify/memory"
)

func TestConversation_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "conv.json")

	in := []memory.Message{{Role: "system", Content: "be careful"}, {Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	if err := memory.SaveConversation(p, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := memory.LoadConversation(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("mismatch at %d: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestConversation_LoadMissing_ReturnsNil(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "does-not-exist.json")

	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Fatalf("expected missing file in tempdir")
	}

	msgs, err := memory.LoadConversation(p)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if msgs != nil {
		t.Fatalf("expected nil slice for missing file, got %#v", msgs)
	}
}

func TestConversation_LoadInvalidJSON_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(p, []byte("{oops"), 0o664); err != nil {
		t.Fatalf("prep: %v", err)
	}
	if _, err := memory.LoadConversation(p); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestConversation_SystemFirstAndUnique(t *testing.T) {
	c := memory.NewConversation("sys")
	c.AddUser("article")
	c.AddAssistant("")

	if err := c.Append(memory.RoleSystem, "again"); !errors.Is(err, memory.ErrSystemMessage) {
		t.Fatalf("want ErrSystemMessage, got %v", err)
	}
	if err := c.Append("tool", "x"); err == nil {
		t.Fatal("expected error for unknown role")
	}

	msgs := c.Messages()
	if len(msgs) != 3 || c.Len() != 3 {
		t.Fatalf("want 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != memory.RoleSystem {
		t.Fatalf("first message role = %q", msgs[0].Role)
	}
	for _, m := range msgs[1:] {
		if m.Role == memory.RoleSystem {
			t.Fatal("system role appeared after the first message")
		}
	}
}

func TestConversation_MessagesIsCopy(t *testing.T) {
	c := memory.NewConversation("sys")
	c.AddUser("a")
	msgs := c.Messages()
	msgs[1].Content = "mutated"
	if got := c.Messages()[1].Content; got != "a" {
		t.Fatalf("history mutated through copy: %q", got)
	}
}
