package tools

// Reference tables for the heuristic analyzers. Treated as read-only.

var knownFakeDomains = setOf(
	"worldnewsdailyreport.com",
	"empirenews.net",
	"abcnews.com.co",
	"clickhole.com",
	"nationalreport.net",
	"beforeitsnews.com",
	"thespoof.com",
	"huzlers.com",
	"realnewsrightnow.com",
	"newslo.com",
	"superofficialnews.com",
	"freedomcrossroads.us",
	"endingthefed.com",
	"news-hound.com",
	"politicalblindspot.com",
	"activistpost.com",
	"yournewswire.com",
	"newspunch.com",
	"civic-tribune.com",
	"the-observer.com.br",
)

var knownCredibleDomains = setOf(
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"bbc.co.uk",
	"npr.org",
	"theguardian.com",
	"nytimes.com",
	"washingtonpost.com",
	"snopes.com",
	"factcheck.org",
	"politifact.com",
	"who.int",
	"cdc.gov",
	"nih.gov",
	"nasa.gov",
	"wikipedia.org",
	"nature.com",
	"science.org",
	"pbs.org",
	"bbc.gov.uk",
)

// Order matters: triggers are reported in list order.
var emotionalTriggers = []string{
	"shocking",
	"bombshell",
	"exposed",
	"breaking",
	"urgent",
	"must read",
	"you won't believe",
	"cover up",
	"mainstream media",
	"miracle cure",
	"banned",
	"censored",
	"conspiracy",
	"hoax",
	"silenced",
	"deep state",
	"alert",
	"scandal",
	"massive",
	"unbelievable",
	"incredible",
	"devastating",
	"stunning",
	"horrifying",
	"disgusting",
	"outrageous",
}

var stopWords = setOf(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to",
	"for", "of", "with", "is", "are", "was", "be",
)

// officialSources maps a person or organisation to pages that publish their
// statements. Keys are matched case-insensitively.
var officialSources = map[string][]string{
	"who":           {"who.int/news", "who.int/director-general/speeches"},
	"cdc":           {"cdc.gov/media/releases", "cdc.gov/newsroom"},
	"narendra modi": {"pmindia.gov.in", "narendramodi.in"},
	"joe biden":     {"whitehouse.gov/briefing-room"},
	"elon musk":     {"twitter.com/elonmusk", "tesla.com/news"},
	"donald trump":  {"truthsocial.com"},
}

// IsKnownFakeDomain reports whether host is on the known-fake list.
func IsKnownFakeDomain(host string) bool { _, ok := knownFakeDomains[host]; return ok }

// IsKnownCredibleDomain reports whether host is on the known-credible list.
func IsKnownCredibleDomain(host string) bool { _, ok := knownCredibleDomains[host]; return ok }

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
