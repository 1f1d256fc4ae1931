package ogc

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/beevik/etree"
)

type Exception struct {
	Code    string
	Locator string
	Text    string
}

// ExceptionReport is an OWS ExceptionReport (1.1.0/2.0.0) or a WFS 1.0.0
// ServiceExceptionReport.
type ExceptionReport struct {
	Exceptions []Exception
}

func (r *ExceptionReport) Error() string {
	if len(r.Exceptions) == 0 {
		return "service exception"
	}
	parts := make([]string, 0, len(r.Exceptions))
	for _, e := range r.Exceptions {
		var b strings.Builder
		if e.Code != "" {
			b.WriteString(e.Code)
			if e.Locator != "" {
				b.WriteString(" (" + e.Locator + ")")
			}
			b.WriteString(": ")
		}
		b.WriteString(e.Text)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "; ")
}

// ParseExceptionReport returns the report when b is an exception document.
func ParseExceptionReport(b []byte) (*ExceptionReport, bool) {
	if !LooksLikeException(b) {
		return nil, false
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, false
	}
	root := doc.Root()
	if root == nil {
		return nil, false
	}
	return exceptionFromRoot(root)
}

// LooksLikeException reports whether the root element of the document that
// starts with head is an ExceptionReport or ServiceExceptionReport. Only the
// prolog and the root start tag are read, so a truncated head is enough.
func LooksLikeException(head []byte) bool {
	const window = 1024
	h := head
	if len(h) > window {
		h = h[:window]
	}
	h = bytes.TrimLeft(h, "\xef\xbb\xbf \t\r\n")
	if len(h) == 0 || h[0] != '<' {
		return false
	}
	d := xml.NewDecoder(bytes.NewReader(h))
	// element names are ASCII in every encoding a WFS declares
	d.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	for {
		tok, err := d.RawToken()
		if err != nil {
			return false
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch se.Name.Local {
			case "ExceptionReport", "ServiceExceptionReport":
				return true
			}
			return false
		}
	}
}

func exceptionFromRoot(root *etree.Element) (*ExceptionReport, bool) {
	switch root.Tag {
	case "ExceptionReport":
		rep := &ExceptionReport{}
		for _, ex := range children(root, "Exception") {
			e := Exception{
				Code:    ex.SelectAttrValue("exceptionCode", ""),
				Locator: ex.SelectAttrValue("locator", ""),
			}
			var texts []string
			for _, t := range children(ex, "ExceptionText") {
				if s := strings.TrimSpace(t.Text()); s != "" {
					texts = append(texts, s)
				}
			}
			e.Text = strings.Join(texts, " ")
			rep.Exceptions = append(rep.Exceptions, e)
		}
		return rep, true
	case "ServiceExceptionReport":
		rep := &ExceptionReport{}
		for _, ex := range children(root, "ServiceException") {
			rep.Exceptions = append(rep.Exceptions, Exception{
				Code:    ex.SelectAttrValue("code", ""),
				Locator: ex.SelectAttrValue("locator", ""),
				Text:    strings.TrimSpace(ex.Text()),
			})
		}
		return rep, true
	}
	return nil, false
}
