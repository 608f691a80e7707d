package qcml

import (
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/524D/qcml/internal/cv"
	"github.com/524D/qcml/internal/quant"
)

// Read reads a qcML document from reader. Warnings about the document
// are returned next to the model; they never stop the parse. A document
// that declares an unknown quantitation type gives ErrInvalidQuantType.
func Read(reader io.Reader, opts ReaderOptions) (*quant.MSQuantifications, []cv.Warning, error) {
	s, err := NewSession(opts)
	if err != nil {
		return nil, nil, err
	}

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	for {
		t, tokenErr := d.Token()
		if tokenErr != nil {
			if tokenErr == io.EOF {
				break
			}
			return nil, s.Warnings(), fmt.Errorf("qcml: %w", tokenErr)
		}
		switch t := t.(type) {
		case xml.StartElement:
			s.StartElement(t)
		case xml.EndElement:
			s.EndElement(t.Name.Local)
		case xml.CharData:
			s.CharData(t)
		}
	}

	msq, err := s.Finish()
	if err != nil {
		return nil, s.Warnings(), err
	}
	return msq, s.Warnings(), nil
}
