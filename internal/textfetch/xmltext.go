package textfetch

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ExtractPlainText flattens an XML document into plain text: all character
// data in document order, one segment per line, internal whitespace collapsed
// to single spaces. Consecutive identical segments are collapsed to one,
// because the source format repeats the same line across nested elements.
func ExtractPlainText(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false

	var segments []string
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("textfetch: parse xml: %w", err)
		}
		chars, ok := token.(xml.CharData)
		if !ok {
			continue
		}
		segment := collapseWhitespace(string(chars))
		if segment == "" {
			continue
		}
		if len(segments) > 0 && segments[len(segments)-1] == segment {
			continue
		}
		segments = append(segments, segment)
	}
	return strings.Join(segments, "\n"), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
