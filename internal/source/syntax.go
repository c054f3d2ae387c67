package source

import (
	"fmt"
	"regexp"
	"strings"
)

// Target is an ECMAScript language level.
type Target int

const (
	ES5 Target = iota
	ES2015
	ES2016
	ES2017
	ES2018
	ES2019
	ES2020
	ES2021
	ES2022
	ESNext
)

var targetNames = [...]string{
	ES5: "es5", ES2015: "es2015", ES2016: "es2016", ES2017: "es2017", ES2018: "es2018",
	ES2019: "es2019", ES2020: "es2020", ES2021: "es2021", ES2022: "es2022", ESNext: "esnext",
}

func (t Target) String() string {
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTarget accepts es5, es6, es2015 through es2022 and esnext.
func ParseTarget(s string) (Target, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "es6" {
		return ES2015, nil
	}
	for t, name := range targetNames {
		if s == name {
			return Target(t), nil
		}
	}
	return ES5, fmt.Errorf("unknown target %q (valid: es5, es2015..es2022, esnext)", s)
}

// Feature is a syntax construct together with the first level supporting it.
type Feature struct {
	Name  string `json:"name" yaml:"name"`
	Since Target `json:"since" yaml:"since"`
	Line  int    `json:"line" yaml:"line"`
}

// Patterns whose first group is a leading guard match one character early;
// the construct starts where that group ends.
var featurePatterns = []struct {
	name  string
	since Target
	re    *regexp.Regexp
}{
	{"arrow function", ES2015, regexp.MustCompile(`=>`)},
	{"let/const declaration", ES2015, regexp.MustCompile(`(^|[^.\w$])(let|const)\s+[\w$\[{]`)},
	{"class declaration", ES2015, regexp.MustCompile(`(^|[^.\w$])class(\s+[\w$]+)?\s*(extends\b|\{)`)},
	{"template literal", ES2015, regexp.MustCompile("`")},
	{"exponent operator", ES2016, regexp.MustCompile(`\*\*`)},
	{"async function", ES2017, regexp.MustCompile(`(^|[^.\w$])async\s+(function\b|\(|[\w$]+\s*=>)`)},
	{"object spread", ES2018, regexp.MustCompile(`\{\s*\.\.\.`)},
	{"optional chaining", ES2020, regexp.MustCompile(`\?\.[^0-9]`)},
	{"nullish coalescing", ES2020, regexp.MustCompile(`\?\?`)},
	{"private class member", ES2022, regexp.MustCompile(`(^|[^\w$])#[A-Za-z_$]`)},
}

// scanFeatures returns, for each construct found, its first occurrence.
func scanFeatures(l *Lexed) []Feature {
	var out []Feature
	for _, p := range featurePatterns {
		loc := p.re.FindStringSubmatchIndex(l.Code)
		if loc == nil {
			continue
		}
		start := loc[0]
		if strings.HasPrefix(p.re.String(), "(^|") && loc[3] >= 0 {
			start = loc[3]
		}
		out = append(out, Feature{Name: p.name, Since: p.since, Line: lineOf(l.Text, start)})
	}
	return out
}

// Above returns the features that need a newer level than target.
func Above(features []Feature, target Target) []Feature {
	var out []Feature
	for _, f := range features {
		if f.Since > target {
			out = append(out, f)
		}
	}
	return out
}
