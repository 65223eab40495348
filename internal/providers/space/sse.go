package space

import (
	"bufio"
	"bytes"
	"io"
	"iter"
	"strings"
)

var (
	bomBytes   = []byte("\xEF\xBB\xBF")
	colonBytes = []byte(":")
	spaceBytes = []byte(" ")

	dataBytes  = []byte("data")
	eventBytes = []byte("event")
)

// event is one server-sent event from the queue stream.
type event struct {
	Type string
	Data string
}

// streamEvents yields server-sent events read from r. Events without data
// are dropped except for named events, which Gradio uses for "heartbeat"
// and for "error" with a null payload.
func streamEvents(r io.Reader) iter.Seq2[event, error] {
	return func(yield func(event, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
		scanner.Split(splitEndOfLine)

		var seenLine bool
		var eventType string
		var sb strings.Builder
		for scanner.Scan() {
			line := scanner.Bytes()
			if !seenLine {
				line = bytes.TrimPrefix(line, bomBytes)
				seenLine = true
			}

			if len(line) == 0 {
				ev := event{Type: eventType, Data: strings.TrimSuffix(sb.String(), "\n")}
				eventType = ""
				sb.Reset()
				if ev.Data == "" && ev.Type == "" {
					continue
				}
				if ev.Type == "" {
					ev.Type = "message"
				}
				if !yield(ev, nil) {
					return
				}
				continue
			}

			name, value, _ := bytes.Cut(line, colonBytes)
			if len(name) == 0 {
				continue
			}
			value = bytes.TrimPrefix(value, spaceBytes)

			switch {
			case bytes.Equal(name, eventBytes):
				eventType = string(value)
			case bytes.Equal(name, dataBytes):
				sb.Grow(len(value) + 1)
				sb.Write(value)
				sb.WriteByte('\n')
			}
		}
		if err := scanner.Err(); err != nil {
			yield(event{}, err)
			return
		}
		// Flush a final event not terminated by a blank line.
		if eventType != "" || sb.Len() > 0 {
			ev := event{Type: eventType, Data: strings.TrimSuffix(sb.String(), "\n")}
			if ev.Type == "" {
				ev.Type = "message"
			}
			yield(ev, nil)
		}
	}
}

// splitEndOfLine splits on \n, \r, or \r\n.
func splitEndOfLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := range data {
		switch data[i] {
		case '\n':
			if i > 0 && data[i-1] == '\r' {
				return i + 1, data[:i-1], nil
			}
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			if i+1 == len(data) && !atEOF {
				// Need more data to know whether \n follows.
				return 0, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
