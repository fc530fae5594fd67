package tokenizer

import "unicode"

const maxTagNameLen = 31

// htmlFilter is a streaming tag stripper. It is fed one rune at a time and
// reports whether the rune belongs to visible text. The filter never fails:
// an unterminated tag simply keeps it inside the tag until input ends.
type htmlFilter struct {
	insideTag    bool
	insideScript bool
	insideStyle  bool
	closing      bool
	nameDone     bool
	tag          []rune
}

func newHTMLFilter() *htmlFilter {
	return &htmlFilter{tag: make([]rune, 0, maxTagNameLen)}
}

// feed consumes r and returns true when r is document text.
func (f *htmlFilter) feed(r rune) bool {
	if r == '<' {
		f.insideTag = true
		f.closing = false
		f.nameDone = false
		f.tag = f.tag[:0]
		return false
	}
	if f.insideTag {
		switch {
		case r == '>':
			f.insideTag = false
			f.closeTag()
		case r == '/' && len(f.tag) == 0:
			f.closing = true
		case !f.nameDone && unicode.IsLetter(r):
			if len(f.tag) < maxTagNameLen {
				f.tag = append(f.tag, unicode.ToLower(r))
			}
		case len(f.tag) > 0:
			// The name ends at the first non-letter; attributes are ignored.
			f.nameDone = true
		}
		return false
	}
	return !f.insideScript && !f.insideStyle
}

func (f *htmlFilter) closeTag() {
	switch string(f.tag) {
	case "script":
		f.insideScript = !f.closing
	case "style":
		f.insideStyle = !f.closing
	}
}
