package bodyparser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/umisama/go-regexpcache"
	"golang.org/x/net/html/charset"
)

// ErrExternalEntity is returned for documents that reference external entities or DTDs
var ErrExternalEntity = errors.New("external entity declarations are not allowed")

// XMLElement is a generic XML tree node
type XMLElement struct {
	Name      string        `json:"name"`
	Namespace string        `json:"namespace,omitempty"`
	Attrs     []XMLAttr     `json:"attrs,omitempty"`
	Text      string        `json:"text,omitempty"`
	Children  []*XMLElement `json:"children,omitempty"`
}

// XMLAttr is an attribute of an XMLElement
type XMLAttr struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	Value     string `json:"value"`
}

// Attr returns the value of the first attribute with the given local name
func (e *XMLElement) Attr(name string) (string, bool) {
	for _, attr := range e.Attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Child returns the first direct child with the given local name
func (e *XMLElement) Child(name string) *XMLElement {
	for _, child := range e.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// DecodeXML decodes an XML body into an *XMLElement tree.
//
// The external entity loader is disabled while the document is parsed and
// restored afterwards. Malformed documents yield a nil value.
func DecodeXML(body []byte) (any, error) {
	restore := disableEntityLoader()
	defer restore()

	root, err := parseXMLTree(body)
	if err != nil {
		return nil, fmt.Errorf("invalid XML body: %w", err)
	}
	return root, nil
}

func parseXMLTree(body []byte) (*XMLElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var root *XMLElement
	var stack []*XMLElement
	var text []*strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &XMLElement{
				Name:      t.Name.Local,
				Namespace: t.Name.Space,
			}
			for _, attr := range t.Attr {
				el.Attrs = append(el.Attrs, XMLAttr{
					Name:      attr.Name.Local,
					Namespace: attr.Name.Space,
					Value:     attr.Value,
				})
			}

			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else if root != nil {
				return nil, fmt.Errorf("multiple root elements")
			} else {
				root = el
			}
			stack = append(stack, el)
			text = append(text, &strings.Builder{})

		case xml.EndElement:
			top := len(stack) - 1
			stack[top].Text = strings.TrimSpace(text[top].String())
			stack = stack[:top]
			text = text[:top]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("character data outside of the root element")
				}
				continue
			}
			text[len(text)-1].Write(t)

		case xml.Directive:
			if !EntityLoaderEnabled() && referencesExternalResource(t) {
				return nil, ErrExternalEntity
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return root, nil
}

// referencesExternalResource reports whether a DOCTYPE directive declares an
// external DTD or external entity. The keyword only counts in external ID
// position: after the root element name or after the name of an entity.
func referencesExternalResource(directive xml.Directive) bool {
	directive = bytes.TrimSpace(directive)
	if !bytes.HasPrefix(directive, []byte("DOCTYPE")) {
		return false
	}
	return regexpcache.MustCompile(
		`(?:^DOCTYPE\s+[^\s\[>]+|<!ENTITY\s+(?:%\s+)?[^\s>]+)\s+(?:SYSTEM|PUBLIC)\b`,
	).Match(directive)
}
