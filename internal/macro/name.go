package macro

// isDelimiter reports whether c separates name tokens.
func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f', ':':
		return true
	}
	return false
}

// Tokenize splits a macro name into tokens.
// Tokens are substrings of name; runs of delimiters produce no empty tokens.
func Tokenize(name string) []string {
	var tokens []string
	start := -1
	for i := 0; i < len(name); i++ {
		if isDelimiter(name[i]) {
			if start >= 0 {
				tokens = append(tokens, name[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, name[start:])
	}
	return tokens
}

// Wildcard matches any single token in a pattern.
const Wildcard = "*"

// matchTokens reports whether tokens begin with pattern.
func matchTokens(tokens, pattern []string) bool {
	if len(tokens) < len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p != Wildcard && tokens[i] != p {
			return false
		}
	}
	return true
}
