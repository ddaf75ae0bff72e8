package extract

import (
	"errors"
	"strings"
)

// ErrNoScriptState reports that the marker was not found or no JSON object
// follows it.
var ErrNoScriptState = errors.New("script state not found")

// ScriptObject locates marker inside script and returns the first balanced
// JSON object or array literal that follows it. Platform adapters use this to
// pull player state out of inline bootstrap scripts (the middle tier of the
// extraction cascade).
func ScriptObject(script, marker string) (string, error) {
	idx := strings.Index(script, marker)
	if idx < 0 {
		return "", ErrNoScriptState
	}
	rest := script[idx+len(marker):]

	start := strings.IndexAny(rest, "{[")
	if start < 0 {
		return "", ErrNoScriptState
	}
	rest = rest[start:]

	open := rest[0]
	var close byte
	if open == '{' {
		close = '}'
	} else {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return rest[:i+1], nil
			}
		}
	}
	return "", ErrNoScriptState
}
