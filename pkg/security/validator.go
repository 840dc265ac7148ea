package security

import "strings"

// LikeEscapeChar is the escape character declared in LIKE ... ESCAPE clauses.
// It is not special in string literals of any supported dialect.
const LikeEscapeChar = "!"

// likeEscaper prefixes LIKE metacharacters with LikeEscapeChar
var likeEscaper = strings.NewReplacer(
	LikeEscapeChar, LikeEscapeChar+LikeEscapeChar,
	"%", LikeEscapeChar+"%",
	"_", LikeEscapeChar+"_",
)

// NormalizeSearchQuery trims surrounding whitespace.
// Search text is always bound as a query parameter, so no other filtering is needed.
// Text of any length is accepted; text longer than every stored value simply matches nothing.
func NormalizeSearchQuery(query string) string {
	return strings.TrimSpace(query)
}

// EscapeLike escapes LIKE wildcards so the query matches literally
func EscapeLike(query string) string {
	if query == "" {
		return ""
	}
	return likeEscaper.Replace(query)
}

// ContainsPattern builds a lower-cased substring pattern for LIKE ... ESCAPE '!'
func ContainsPattern(query string) string {
	return "%" + EscapeLike(strings.ToLower(query)) + "%"
}
