package engine

import "regexp"

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// fillTemplate substitutes {placeholder} tokens in template from entities.
// A placeholder with no corresponding entity renders as an empty string, so
// substitution never fails.
func fillTemplate(template string, entities map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(token string) string {
		key := token[1 : len(token)-1]
		return entities[key]
	})
}
