package parser

import (
	"regexp"
)

// Pattern order matters: more specific forms are tried before general ones
// so an unrelated numeric query parameter is never picked up.
var topicIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`tid=(\d+)`),
	regexp.MustCompile(`read\.php\?tid=(\d+)`),
	regexp.MustCompile(`/thread/(\d+)`),
	regexp.MustCompile(`/read/(\d+)`),
	regexp.MustCompile(`read\.php.*?tid=(\d+)`),
}

var userIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`uid=(\d+)`),
	regexp.MustCompile(`/user/(\d+)`),
	regexp.MustCompile(`nuke\.php\?func=ucp&uid=(\d+)`),
}

// ExtractTopicID pulls the thread identifier out of a forum URL, or returns
// "" when no pattern matches. Deterministic and side-effect free.
func ExtractTopicID(url string) string {
	return firstMatch(topicIDPatterns, url)
}

// ExtractUserID pulls the user identifier out of a profile URL, or returns
// "" when no pattern matches.
func ExtractUserID(url string) string {
	return firstMatch(userIDPatterns, url)
}

func firstMatch(patterns []*regexp.Regexp, s string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}
