package tts

import (
	"regexp"
	"strings"
	"unicode"
)

// TextSegment is one speakable chunk of chapter text, the unit of
// synthesis and of playback bookkeeping. Start and End are byte offsets
// of the trimmed text within the original, untrimmed chapter string,
// which the reader view uses to highlight the sentence being spoken.
type TextSegment struct {
	Text  string
	Start int
	End   int
}

// Sentence-final punctuation, tried first. The pause-level marks are the
// fallback when a sentence alone still exceeds the limit.
var (
	primaryBreak   = regexp.MustCompile(`[。！？!?]`)
	secondaryBreak = regexp.MustCompile(`[,;:，；：、]`)
)

// Segment splits chapter text into speakable chunks of at most limit
// bytes. Lines are processed independently; overlong lines are cut at
// sentence-final punctuation, then at pause punctuation. A chunk that
// neither regex can shorten below the limit is emitted as-is rather than
// cut mid-word.
func Segment(text string, limit int) []TextSegment {
	var segs []TextSegment
	base := 0
	for {
		end := len(text)
		rest := -1
		if nl := strings.IndexByte(text[base:], '\n'); nl >= 0 {
			end = base + nl
			rest = end + 1
		}
		segs = appendLine(segs, text[base:end], base, limit, primaryBreak)
		if rest < 0 {
			break
		}
		base = rest
	}
	return segs
}

func appendLine(dst []TextSegment, line string, base, limit int, re *regexp.Regexp) []TextSegment {
	trimmed, lead := trimOffset(line)
	if trimmed == "" {
		return dst
	}
	if len(trimmed) <= limit {
		return append(dst, TextSegment{
			Text:  trimmed,
			Start: base + lead,
			End:   base + lead + len(trimmed),
		})
	}

	cursor := 0
	for _, m := range re.FindAllStringIndex(line, -1) {
		dst = appendChunk(dst, line[cursor:m[1]], base+cursor, limit, re)
		cursor = m[1]
	}
	if cursor < len(line) {
		dst = appendChunk(dst, line[cursor:], base+cursor, limit, re)
	}
	return dst
}

func appendChunk(dst []TextSegment, chunk string, base, limit int, re *regexp.Regexp) []TextSegment {
	trimmed, lead := trimOffset(chunk)
	if trimmed == "" {
		return dst
	}
	if len(trimmed) > limit && re == primaryBreak {
		return appendLine(dst, chunk, base, limit, secondaryBreak)
	}
	return append(dst, TextSegment{
		Text:  trimmed,
		Start: base + lead,
		End:   base + lead + len(trimmed),
	})
}

// trimOffset trims surrounding whitespace and reports the byte offset of
// the trimmed text within s.
func trimOffset(s string) (string, int) {
	ltrimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	lead := len(s) - len(ltrimmed)
	return strings.TrimRightFunc(ltrimmed, unicode.IsSpace), lead
}
