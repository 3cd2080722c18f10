// Package rules normalizes transcribed questions before they are searched:
// spoken fillers and wake phrases are dropped and subject vocabulary is
// corrected with user-defined substitutions.
package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedRule = errors.New("unsupported rule format")

// RuleSet is the YAML form of a rules file.
//
//	fillers: [um, uh]
//	prefixes: ["hey tutor"]
//	substitutions:
//	  - match: e equals m c squared
//	    replace: E=mc²
//	  - regex: '\bdeep\s*gram\b'
//	    replace: Deepgram
//	    global: true
type RuleSet struct {
	Fillers       []string       `yaml:"fillers"`
	Prefixes      []string       `yaml:"prefixes"`
	Substitutions []Substitution `yaml:"substitutions"`
}

// Substitution replaces a literal phrase or a regular expression. Matching
// is case-insensitive unless CaseSensitive is set.
type Substitution struct {
	Match         string `yaml:"match,omitempty"`
	Regex         string `yaml:"regex,omitempty"`
	Replace       string `yaml:"replace"`
	Global        bool   `yaml:"global,omitempty"`
	CaseSensitive bool   `yaml:"caseSensitive,omitempty"`
	MultiLine     bool   `yaml:"multiLine,omitempty"`
	DotAll        bool   `yaml:"dotAll,omitempty"`
}

type compiledRule interface {
	Apply(input string) (output string, changed bool)
}

// Engine applies the rules repeatedly until the text is stable or the loop
// limit is reached.
type Engine struct {
	rules     []compiledRule
	loopLimit int
}

var whitespace = regexp.MustCompile(`\s+`)

// Load reads a rules file. Files ending in .yaml or .yml use the RuleSet
// schema; anything else uses one rule per line ("from => to" or
// "s/pattern/replacement/flags"). A missing file yields an empty engine.
func Load(path string, loopLimit int) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return New(RuleSet{}, loopLimit)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(RuleSet{}, loopLimit)
		}
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}

	var set RuleSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(contents, &set); err != nil {
			return nil, fmt.Errorf("parse rules file %q: %w", path, err)
		}
	default:
		set, err = ParseLines(string(contents))
		if err != nil {
			return nil, fmt.Errorf("parse rules file %q: %w", path, err)
		}
	}

	engine, err := New(set, loopLimit)
	if err != nil {
		return nil, fmt.Errorf("compile rules file %q: %w", path, err)
	}
	return engine, nil
}

// New compiles set. Prefix rules run first, then fillers, then
// substitutions in file order.
func New(set RuleSet, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}

	var compiled []compiledRule
	if rule, ok := phraseRule(`^\s*(?:%s)\b[\s,:.!?]*`, set.Prefixes); ok {
		compiled = append(compiled, rule)
	}
	if rule, ok := phraseRule(`\b(?:%s)\b[,]?`, set.Fillers); ok {
		compiled = append(compiled, rule)
	}
	for index, sub := range set.Substitutions {
		rule, err := compileSubstitution(sub)
		if err != nil {
			return nil, fmt.Errorf("substitution %d: %w", index+1, err)
		}
		compiled = append(compiled, rule)
	}
	return &Engine{rules: compiled, loopLimit: loopLimit}, nil
}

// Apply normalizes a transcribed question.
func (e *Engine) Apply(text string) (string, error) {
	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, rule := range e.rules {
			if next, ruleChanged := rule.Apply(result); ruleChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(result, " ")), nil
}

// ParseLines reads the line-oriented rules format. Blank lines and lines
// starting with # are skipped.
func ParseLines(contents string) (RuleSet, error) {
	var set RuleSet
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var (
			sub Substitution
			err error
		)
		switch {
		case looksLikeRegexRule(line):
			sub, err = parseRegexLine(line)
		case strings.Contains(line, "=>"):
			sub, err = parseLiteralLine(line)
		default:
			err = ErrUnsupportedRule
		}
		if err != nil {
			return RuleSet{}, fmt.Errorf("line %d: %w", index+1, err)
		}
		set.Substitutions = append(set.Substitutions, sub)
	}
	return set, nil
}

func phraseRule(format string, phrases []string) (compiledRule, bool) {
	quoted := lo.FilterMap(phrases, func(phrase string, _ int) (string, bool) {
		phrase = strings.TrimSpace(phrase)
		return regexp.QuoteMeta(phrase), phrase != ""
	})
	if len(quoted) == 0 {
		return nil, false
	}
	re := regexp.MustCompile("(?i)" + fmt.Sprintf(format, strings.Join(quoted, "|")))
	return regexRule{re: re, global: true}, true
}

func compileSubstitution(sub Substitution) (compiledRule, error) {
	pattern := sub.Regex
	switch {
	case sub.Match != "" && sub.Regex != "":
		return nil, errors.New("set either match or regex, not both")
	case strings.TrimSpace(sub.Match) != "":
		pattern = regexp.QuoteMeta(strings.TrimSpace(sub.Match))
		sub.Global = true
	case pattern == "":
		return nil, errors.New("rule source cannot be empty")
	}

	flags := ""
	if !sub.CaseSensitive {
		flags += "i"
	}
	if sub.MultiLine {
		flags += "m"
	}
	if sub.DotAll {
		flags += "s"
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: sub.Replace, global: sub.Global}, nil
}

func parseLiteralLine(line string) (Substitution, error) {
	from, to, _ := strings.Cut(line, "=>")
	from = strings.TrimSpace(from)
	if from == "" {
		return Substitution{}, errors.New("literal rule source cannot be empty")
	}
	return Substitution{Match: from, Replace: strings.TrimSpace(to)}, nil
}

func parseRegexLine(line string) (Substitution, error) {
	delim := line[1]
	pattern, pos, err := parseDelimited(line, 2, delim)
	if err != nil {
		return Substitution{}, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := parseDelimited(line, pos, delim)
	if err != nil {
		return Substitution{}, fmt.Errorf("invalid regex replacement: %w", err)
	}

	sub := Substitution{Regex: pattern, Replace: replacement}
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'i':
			sub.CaseSensitive = false
		case 'I':
			sub.CaseSensitive = true
		case 'g':
			sub.Global = true
		case 'm':
			sub.MultiLine = true
		case 's':
			sub.DotAll = true
		case ' ':
		default:
			return Substitution{}, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}
	return sub, nil
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	loc := r.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input, false
	}
	replaced := r.re.ExpandString(nil, r.replacement, input, loc)
	output := input[:loc[0]] + string(replaced) + input[loc[1]:]
	return output, output != input
}

func parseDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		if escaped {
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			builder.WriteByte(char)
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isAlphaNumericOrSpace(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == ' ' || char == '\t'
}

func looksLikeRegexRule(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isAlphaNumericOrSpace(line[1])
}
