package llm

import "strings"

const (
	fenceMarker = "```"
	// Longest language tag we expect after an opening fence before giving
	// up on finding a newline.
	maxLangTag = 16
)

// FenceFilter strips markdown code-fence markers from a token stream.
//
// Generation models wrap SQL in ```sql fences. The filter removes the
// opening marker together with its language tag and the closing marker,
// passing everything else through. Tokens are buffered only as long as a
// marker is ambiguous, so output latency stays within a few characters.
type FenceFilter struct {
	pending string
	inside  bool
}

// NewFenceFilter creates a filter in the outside-fence state.
func NewFenceFilter() *FenceFilter {
	return &FenceFilter{}
}

// Write consumes the next chunk and returns whatever content became
// unambiguous, with fence markers removed. The newlines delimiting a
// marker line belong to the marker and are removed with it.
func (f *FenceFilter) Write(chunk string) string {
	f.pending += chunk
	var out strings.Builder

	for {
		idx := strings.Index(f.pending, fenceMarker)
		if idx < 0 {
			// Hold back a trailing partial marker, and inside a fence
			// also the newline that may precede a close. Emit the rest.
			keep := partialMarkerLen(f.pending)
			if f.inside && len(f.pending) > keep && f.pending[len(f.pending)-keep-1] == '\n' {
				keep++
			}
			out.WriteString(f.pending[:len(f.pending)-keep])
			f.pending = f.pending[len(f.pending)-keep:]
			break
		}

		if f.inside {
			// Closing marker. Drop the newline before it and at most
			// one directly after it.
			out.WriteString(strings.TrimSuffix(f.pending[:idx], "\n"))
			f.inside = false
			f.pending = strings.TrimPrefix(f.pending[idx+len(fenceMarker):], "\n")
			continue
		}

		out.WriteString(f.pending[:idx])
		rest := f.pending[idx+len(fenceMarker):]

		// Opening marker. Swallow the language tag up to the newline.
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			if len(rest) < maxLangTag {
				// Tag may still be arriving, wait for more input.
				f.pending = fenceMarker + rest
				break
			}
			f.inside = true
			f.pending = rest
			continue
		}
		f.inside = true
		f.pending = rest[nl+1:]
	}

	return out.String()
}

// Flush returns any remaining buffered content at end of stream.
// An unfinished opening marker is discarded.
func (f *FenceFilter) Flush() string {
	out := f.pending
	f.pending = ""
	if strings.HasPrefix(out, fenceMarker) {
		return ""
	}
	return out
}

// partialMarkerLen returns the length of the longest suffix of s that is
// an incomplete fence marker.
func partialMarkerLen(s string) int {
	if strings.HasSuffix(s, "``") {
		return 2
	}
	if strings.HasSuffix(s, "`") {
		return 1
	}
	return 0
}
