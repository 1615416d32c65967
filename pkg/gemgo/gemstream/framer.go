package gemstream

import (
	"fmt"
)

// JSONFramer buffers streamed bytes and emits each complete top-level JSON
// object found in them.
//
// It is tuned for the plain streamGenerateContent wire format: one large JSON
// array of response objects, delivered incrementally. The enclosing brackets,
// the commas between objects and any other inter-object noise are discarded;
// only the objects themselves are framed. Nesting (including nested arrays)
// and string/escape sequences inside an object are tracked, so braces inside
// string values never confuse the framing.
type JSONFramer struct {
	buffer []byte

	// maxValueSize bounds the buffered prefix of a single value.
	// <= 0 means unbounded.
	maxValueSize int
}

// NewJSONFramer constructs a JSONFramer. maxValueSize bounds the size of a
// single framed object; <= 0 disables the bound.
func NewJSONFramer(maxValueSize int) *JSONFramer {
	return &JSONFramer{
		buffer:       make([]byte, 0, 4096),
		maxValueSize: maxValueSize,
	}
}

// Append adds a new chunk and returns zero or more complete objects.
//
// It returns an error when a single buffered value exceeds maxValueSize or
// when a closing brace or bracket does not match its opener; framing is no
// longer trustworthy after that and the framer must be discarded.
func (f *JSONFramer) Append(chunk []byte) ([][]byte, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	f.buffer = append(f.buffer, chunk...)
	return f.collect()
}

// Final reports whether unframed bytes remain once the stream has ended.
// A non-empty tail means the body ended inside a value.
func (f *JSONFramer) Final() []byte {
	tail := trimJSONNoise(f.buffer)
	f.buffer = f.buffer[:0]
	return tail
}

func (f *JSONFramer) collect() ([][]byte, error) {
	var out [][]byte

	for {
		// Find the next '{'; everything before it is array framing noise.
		start := -1
		for i, b := range f.buffer {
			if b == '{' {
				start = i
				break
			}
		}
		if start == -1 {
			f.buffer = f.buffer[:0]
			return out, nil
		}
		if start > 0 {
			f.buffer = f.buffer[start:]
		}

		end, ok, err := scanJSONValue(f.buffer)
		if err != nil {
			return out, err
		}
		if !ok {
			// Incomplete value; wait for more data.
			if f.maxValueSize > 0 && len(f.buffer) > f.maxValueSize {
				return out, fmt.Errorf("gemstream: JSON value exceeds %d bytes", f.maxValueSize)
			}
			return out, nil
		}
		if f.maxValueSize > 0 && end > f.maxValueSize {
			return out, fmt.Errorf("gemstream: JSON value exceeds %d bytes", f.maxValueSize)
		}

		value := make([]byte, end)
		copy(value, f.buffer[:end])
		out = append(out, value)
		f.buffer = f.buffer[end:]
	}
}

// scanJSONValue reports the end offset of the complete JSON object starting
// at buf[0] (which must be '{'), or ok=false when the object is incomplete.
// A closer that does not match the innermost opener is a framing error.
func scanJSONValue(buf []byte) (end int, ok bool, err error) {
	var openers []byte
	inString := false
	escaped := false

	for i, b := range buf {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{', '[':
			openers = append(openers, b)
		case '}', ']':
			opener := openers[len(openers)-1]
			if (b == '}') != (opener == '{') {
				return 0, false, fmt.Errorf("gemstream: mismatched %q at offset %d", b, i)
			}
			openers = openers[:len(openers)-1]
			if len(openers) == 0 {
				return i + 1, true, nil
			}
		}
	}
	return 0, false, nil
}

// trimJSONNoise strips array framing bytes so that a body ending cleanly
// (`]`, commas, whitespace) leaves no tail.
func trimJSONNoise(buf []byte) []byte {
	start := 0
	for start < len(buf) {
		switch buf[start] {
		case ' ', '\t', '\r', '\n', ',', '[', ']':
			start++
			continue
		}
		break
	}
	if start >= len(buf) {
		return nil
	}
	tail := make([]byte, len(buf)-start)
	copy(tail, buf[start:])
	return tail
}
