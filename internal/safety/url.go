package safety

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
)

// ErrTooManyRedirects is returned when a page redirects more than allowed.
var ErrTooManyRedirects = errors.New("too many redirects")

// Resolver is the subset of *net.Resolver used by URLPolicy.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// URLPolicy validates URLs before any outbound fetch.
// The zero value rejects private destinations and resolves with net.DefaultResolver.
type URLPolicy struct {
	AllowPrivate bool
	Resolver     Resolver
}

// Check parses raw and rejects anything that is not http(s) with a host, or whose
// host resolves to a loopback, private, link-local or unspecified address.
func (p URLPolicy) Check(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, ToolError{Code: CodeBadURL, Message: "invalid URL format"}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ToolError{Code: CodeScheme, Message: "only http and https URLs are allowed"}
	}
	if p.AllowPrivate {
		return u, nil
	}

	host := u.Hostname()
	if addr, err := netip.ParseAddr(host); err == nil {
		if blocked(addr) {
			return nil, ToolError{Code: CodePrivateHost, Message: "destination address is not public"}
		}
		return u, nil
	}

	r := p.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupNetIP(ctx, "ip", host)
	if err != nil || len(addrs) == 0 {
		return nil, ToolError{Code: CodeUnresolvable, Message: "host could not be resolved"}
	}
	for _, a := range addrs {
		if blocked(a) {
			return nil, ToolError{Code: CodePrivateHost, Message: "destination address is not public"}
		}
	}
	return u, nil
}

func blocked(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsLoopback() || a.IsPrivate() || a.IsLinkLocalUnicast() ||
		a.IsLinkLocalMulticast() || a.IsUnspecified() || a.IsMulticast()
}

// CheckRedirect returns an http.Client CheckRedirect func that caps the
// redirect chain at max hops and applies the policy to every hop.
func (p URLPolicy) CheckRedirect(max int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > max {
			return ErrTooManyRedirects
		}
		_, err := p.Check(req.Context(), req.URL.String())
		return err
	}
}

// GuardClient returns a copy of base (nil means http.DefaultClient) whose
// redirects are checked against the policy.
func (p URLPolicy) GuardClient(base *http.Client, maxRedirects int) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	c := *base
	c.CheckRedirect = p.CheckRedirect(maxRedirects)
	return &c
}
