package safety_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/petasbytes/newsverify/internal/safety"
)

type fakeResolver map[string][]netip.Addr

func (f fakeResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	if addrs, ok := f[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func TestURLPolicy_Check(t *testing.T) {
	res := fakeResolver{
		"example.com":  {netip.MustParseAddr("93.184.216.34")},
		"intranet.lan": {netip.MustParseAddr("10.0.0.7")},
		"mixed.test":   {netip.MustParseAddr("8.8.8.8"), netip.MustParseAddr("127.0.0.1")},
	}
	p := safety.URLPolicy{Resolver: res}

	cases := []struct {
		name string
		raw  string
		code string // empty means accepted
	}{
		{"public https", "https://example.com/news", ""},
		{"public ip literal", "http://93.184.216.34/", ""},
		{"not a url", "::nope", safety.CodeBadURL},
		{"no host", "https:///path", safety.CodeBadURL},
		{"ftp scheme", "ftp://example.com/file", safety.CodeScheme},
		{"file scheme", "file:///etc/passwd", safety.CodeBadURL},
		{"loopback literal", "http://127.0.0.1:8080/", safety.CodePrivateHost},
		{"ipv6 loopback", "http://[::1]/", safety.CodePrivateHost},
		{"private by dns", "https://intranet.lan/", safety.CodePrivateHost},
		{"any private answer", "https://mixed.test/", safety.CodePrivateHost},
		{"link local metadata", "http://169.254.169.254/latest", safety.CodePrivateHost},
		{"unresolvable", "https://nowhere.invalid/", safety.CodeUnresolvable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := p.Check(context.Background(), tc.raw)
			if tc.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if u == nil || u.Host == "" {
					t.Fatalf("expected parsed URL, got %v", u)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s for %q", tc.code, tc.raw)
			}
			var te safety.ToolError
			if !errors.As(err, &te) || te.Code != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
		})
	}
}

func TestURLPolicy_AllowPrivate(t *testing.T) {
	p := safety.URLPolicy{AllowPrivate: true}
	if _, err := p.Check(context.Background(), "http://127.0.0.1:9/"); err != nil {
		t.Fatalf("expected private host allowed, got %v", err)
	}
	if _, err := p.Check(context.Background(), "gopher://127.0.0.1/"); err == nil {
		t.Fatal("scheme check must still apply when private hosts are allowed")
	}
}

func TestToolError_IsCompactJSON(t *testing.T) {
	err := safety.InvalidArgs("missing url")
	s := err.Error()
	if strings.Contains(s, "\n") {
		t.Fatalf("expected single-line JSON, got %q", s)
	}
	if !strings.Contains(s, `"code":"ERR_INVALID_ARGS"`) || !strings.Contains(s, `"message":"missing url"`) {
		t.Fatalf("unexpected body: %s", s)
	}
}

func TestURLPolicy_CheckRedirect(t *testing.T) {
	p := safety.URLPolicy{Resolver: fakeResolver{
		"example.com":  {netip.MustParseAddr("93.184.216.34")},
		"intranet.lan": {netip.MustParseAddr("10.0.0.7")},
	}}
	check := p.CheckRedirect(2)
	hop := func(raw string) *http.Request {
		return httptest.NewRequest(http.MethodGet, raw, nil)
	}

	if err := check(hop("https://example.com/b"), []*http.Request{hop("https://example.com/a")}); err != nil {
		t.Fatalf("public hop rejected: %v", err)
	}
	var te safety.ToolError
	if err := check(hop("http://intranet.lan/"), []*http.Request{hop("https://example.com/a")}); !errors.As(err, &te) {
		t.Fatalf("private hop: want ToolError, got %v", err)
	}
	via := []*http.Request{hop("https://example.com/1"), hop("https://example.com/2"), hop("https://example.com/3")}
	if err := check(hop("https://example.com/4"), via); !errors.Is(err, safety.ErrTooManyRedirects) {
		t.Fatalf("want ErrTooManyRedirects, got %v", err)
	}

	c := p.GuardClient(nil, 2)
	if c == http.DefaultClient || c.CheckRedirect == nil {
		t.Fatal("GuardClient must return a guarded copy")
	}
}
