// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"regexp"
	"strings"
)

// DefaultCity is returned when no extraction strategy matches.
const DefaultCity = "Seattle"

var (
	inPattern  = regexp.MustCompile(`(?i)\bin\s+([A-Za-z][A-Za-z\s]*?)$`)
	forPattern = regexp.MustCompile(`(?i)\bfor\s+([A-Za-z][A-Za-z\s]*?)$`)
)

// stopWords are common query words that must never be mistaken for a city
// when falling back to the last token.
var stopWords = map[string]struct{}{
	"weather": {}, "what": {}, "is": {}, "the": {},
	"how": {}, "today": {}, "now": {}, "like": {},
}

// extractStrategy tries one way of pulling a city out of a cleaned query.
type extractStrategy func(query string) (city string, ok bool)

// cityStrategies are tried in order with early return. The ordering is the
// contract: "in <city>" beats "for <city>" beats the bare last token. New
// patterns slot in without touching the existing ones.
var cityStrategies = []extractStrategy{
	matchTrailing(inPattern),
	matchTrailing(forPattern),
	lastToken,
}

// ExtractCity pulls a city name out of a free-text query. It is total: some
// non-empty city always comes back, DefaultCity when nothing matches.
func ExtractCity(query string) string {
	clean := strings.TrimRight(strings.TrimSpace(query), "?!. ")
	for _, strategy := range cityStrategies {
		if city, ok := strategy(clean); ok {
			return city
		}
	}
	return DefaultCity
}

func matchTrailing(pattern *regexp.Regexp) extractStrategy {
	return func(query string) (string, bool) {
		m := pattern.FindStringSubmatch(query)
		if m == nil {
			return "", false
		}
		city := strings.TrimSpace(m[1])
		if city == "" {
			return "", false
		}
		return city, true
	}
}

func lastToken(query string) (string, bool) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "", false
	}
	last := fields[len(fields)-1]
	if _, stop := stopWords[strings.ToLower(last)]; stop {
		return "", false
	}
	return last, true
}

// weatherKeywords gate the fallback path: only queries that are plainly
// about weather get a direct tool call when the decision loop declines to
// invoke the tool.
var weatherKeywords = []string{"weather", "temperature", "forecast", "condition"}

func hasWeatherKeyword(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range weatherKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
