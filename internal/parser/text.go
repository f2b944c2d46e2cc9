package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
)

// TextParser handles plain text files. Blank lines separate paragraphs and
// each paragraph becomes one untitled section.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Outline, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	o := &doctree.Outline{Title: baseTitle(filename)}
	var para []string
	emit := func() {
		if len(para) > 0 {
			o.Sections = append(o.Sections, &doctree.Section{Text: strings.Join(para, "\n")})
			para = para[:0]
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			emit()
			continue
		}
		para = append(para, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	emit()

	return o, nil
}
