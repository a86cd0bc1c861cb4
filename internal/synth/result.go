package synth

import (
	"encoding/json"
	"regexp"
	"strings"
)

// OptionsResult is the outcome of parsing structured provider output.
// Exactly one branch is meaningful: Parsed true carries Options, Parsed
// false carries the raw text that could not be interpreted.
type OptionsResult struct {
	Parsed  bool
	Options []string
	Raw     string
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*\\n([\\s\\S]*?)```")

// ParseOptions interprets provider output for a structured task. It
// accepts a bare JSON string array, an array inside a markdown code
// fence or surrounding prose, or a markdown bullet list. Anything else
// is returned unparsed so the caller can substitute defaults.
func ParseOptions(content string) OptionsResult {
	trimmed := strings.TrimSpace(content)

	if opts, ok := tryJSONArray(trimmed); ok {
		return OptionsResult{Parsed: true, Options: opts}
	}

	if extracted := extractJSONArray(trimmed); extracted != "" {
		if opts, ok := tryJSONArray(extracted); ok {
			return OptionsResult{Parsed: true, Options: opts}
		}
	}

	if opts := parseBulletList(trimmed); len(opts) > 0 {
		return OptionsResult{Parsed: true, Options: opts}
	}

	return OptionsResult{Raw: content}
}

func tryJSONArray(s string) ([]string, bool) {
	var opts []string
	if err := json.Unmarshal([]byte(s), &opts); err != nil {
		return nil, false
	}

	cleaned := opts[:0]
	for _, o := range opts {
		if o = strings.TrimSpace(o); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if len(cleaned) == 0 {
		return nil, false
	}
	return cleaned, true
}

// extractJSONArray pulls a JSON array out of markdown code fences or,
// failing that, scans for the first bracket-balanced array in the text.
func extractJSONArray(content string) string {
	if matches := jsonBlockRegex.FindStringSubmatch(content); len(matches) > 1 {
		candidate := strings.TrimSpace(matches[1])
		if strings.HasPrefix(candidate, "[") {
			return candidate
		}
	}

	start := strings.Index(content, "[")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

func parseBulletList(content string) []string {
	var opts []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		var item string
		switch {
		case strings.HasPrefix(line, "- "):
			item = line[2:]
		case strings.HasPrefix(line, "* "):
			item = line[2:]
		default:
			continue
		}
		if item = strings.TrimSpace(item); item != "" {
			opts = append(opts, item)
		}
	}
	return opts
}
