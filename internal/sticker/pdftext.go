package sticker

import (
	"bytes"
	"errors"

	"github.com/ledongthuc/pdf"
)

// FirstPageText extracts the plain text of page one using ledongthuc/pdf.
func FirstPageText(doc []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", errors.New("malformed pdf")
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", err
	}
	if r.NumPage() < 1 {
		return "", errors.New("pdf has no pages")
	}
	p := r.Page(1)
	if p.V.IsNull() {
		return "", errors.New("pdf page 1 missing")
	}
	return p.GetPlainText(nil)
}
