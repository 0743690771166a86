package evaluator

import "regexp"

// prefilter regexes gate the more expensive token scan: when neither
// matches, the statement cannot possibly contain either construct and the
// scan is skipped entirely.
var (
	callInTransactionsPrefilter = regexp.MustCompile(`(?i)call\s*\{`)
	periodicCommitPrefilter     = regexp.MustCompile(`(?i)using\s+periodic\s+commit`)
)

// classifyTransactionMode reports whether text, parsed with backtick- and
// string-literal awareness, contains a `CALL { ... } IN TRANSACTIONS` or a
// `USING PERIODIC COMMIT` construct. A statement that contains neither (or
// whose prefilter never fires) runs MANAGED.
func classifyTransactionMode(text string) TransactionMode {
	if !callInTransactionsPrefilter.MatchString(text) && !periodicCommitPrefilter.MatchString(text) {
		return ModeManaged
	}
	if tokenScanFindsImplicit(text) {
		return ModeImplicit
	}
	return ModeManaged
}

// tokenScanFindsImplicit walks text once, skipping the contents of
// backtick-quoted identifiers and single/double-quoted string literals (so
// a keyword appearing only inside a quoted identifier or literal is never
// mistaken for the construct itself), and reports whether either
// IN TRANSACTIONS or PERIODIC COMMIT is present in code position.
func tokenScanFindsImplicit(text string) bool {
	runes := []rune(text)
	n := len(runes)

	for i := 0; i < n; i++ {
		switch runes[i] {
		case '`':
			i = skipQuoted(runes, i, '`')
		case '\'':
			i = skipQuoted(runes, i, '\'')
		case '"':
			i = skipQuoted(runes, i, '"')
		default:
			if matchesKeywordAt(runes, i, "using periodic commit") {
				return true
			}
			if matchesKeywordAt(runes, i, "in transactions") {
				return true
			}
		}
	}
	return false
}

// skipQuoted returns the index of the closing quote rune matching quote,
// starting the search right after position i (which holds the opening
// quote). If no closing quote is found, it returns the end of the input so
// the caller's loop terminates.
func skipQuoted(runes []rune, i int, quote rune) int {
	for j := i + 1; j < len(runes); j++ {
		if runes[j] == quote {
			return j
		}
	}
	return len(runes)
}

// matchesKeywordAt reports whether the case-insensitive keyword phrase
// (words separated by single spaces in the pattern, arbitrary whitespace
// runs in the input) begins at position i, bounded by non-identifier
// characters on both sides.
func matchesKeywordAt(runes []rune, i int, phrase string) bool {
	if i > 0 && isIdentChar(runes[i-1]) {
		return false
	}
	words := splitWords(phrase)
	pos := i
	for wi, word := range words {
		if wi > 0 {
			skipped := 0
			for pos < len(runes) && isSpace(runes[pos]) {
				pos++
				skipped++
			}
			if skipped == 0 {
				return false
			}
		}
		if pos+len(word) > len(runes) {
			return false
		}
		for k, r := range word {
			if toLower(runes[pos+k]) != r {
				return false
			}
		}
		pos += len(word)
	}
	if pos < len(runes) && isIdentChar(runes[pos]) {
		return false
	}
	return true
}

func splitWords(phrase string) []string {
	var words []string
	start := 0
	for i, r := range phrase {
		if r == ' ' {
			words = append(words, phrase[start:i])
			start = i + 1
		}
	}
	words = append(words, phrase[start:])
	return words
}

func isIdentChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
