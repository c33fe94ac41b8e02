package repositorycache

import (
	"reflect"
	"strings"
	"unicode"
)

// namespaceOf derives the default key namespace from the record type.
func namespaceOf[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if ns := toSnake(t.Name()); ns != "" {
		return ns
	}
	return "record"
}

// toSnake converts a Go type name to snake_case. Generic arguments are
// dropped and an acronym stays one word, so HTTPProxy becomes http_proxy.
// Anything that is not a letter or digit separates words, which keeps the
// separator out of namespaces.
func toSnake(name string) string {
	name, _, _ = strings.Cut(name, "[")
	runes := []rune(name)

	var words []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			words = append(words, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	for i, r := range runes {
		var prev rune
		if i > 0 {
			prev = runes[i-1]
		}

		switch {
		case unicode.IsUpper(r):
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
			word = append(word, r)
		case unicode.IsDigit(r):
			if !unicode.IsDigit(prev) {
				flush()
			}
			word = append(word, r)
		case unicode.IsLetter(r):
			if unicode.IsDigit(prev) {
				flush()
			}
			word = append(word, r)
		default:
			flush()
		}
	}
	flush()

	return strings.Join(words, "_")
}
