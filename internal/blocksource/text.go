package blocksource

import (
	"bufio"
	"io"
	"strings"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
)

// TextSource handles plain text files. Blank lines delimit paragraphs.
type TextSource struct{}

func (s *TextSource) Blocks(r io.Reader, filename string) ([]block.ContentBlock, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var e emitter
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			e.text(current.String())
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return e.blocks, nil
}
