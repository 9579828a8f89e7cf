package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UpperCamelCase converts snake_case or space separated words to UpperCamelCase.
// Example: "get_mock" -> "GetMock"
func UpperCamelCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	c := cases.Title(language.English)
	s = c.String(s)
	return strings.ReplaceAll(s, " ", "")
}

// LowerCamelCase converts snake_case to lowerCamelCase.
// Example: "created_by_id" -> "createdById"
func LowerCamelCase(s string) string {
	upper := UpperCamelCase(s)
	if len(upper) == 0 {
		return upper
	}
	return strings.ToLower(upper[:1]) + upper[1:]
}

// ActionName builds an action name that starts with the plugin's short name.
// Example: ActionName("mockserver", "get_executions") -> "mockserverGetExecutions"
func ActionName(shortName, verb string) string {
	return shortName + UpperCamelCase(verb)
}
