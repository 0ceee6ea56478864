package file

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/jackpatch/pkg/domain"
)

const (
	// RootTag marks a document written by this codec.
	RootTag       = "RAY-JACKPATCH"
	connectionTag = "connection"
)

type document struct {
	XMLName     xml.Name        `xml:"RAY-JACKPATCH"`
	Connections []xmlConnection `xml:"connection"`
}

type xmlConnection struct {
	From string `xml:"from,attr"`
	To   string `xml:"to,attr"`
}

// Encode serializes set as a RAY-JACKPATCH document.
func Encode(set domain.ConnectionSet) ([]byte, error) {
	doc := document{Connections: make([]xmlConnection, 0, len(set))}
	for _, c := range set {
		doc.Connections = append(doc.Connections, xmlConnection{From: c.From, To: c.To})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Report describes a parsed patch document.
type Report struct {
	Root        string
	Connections domain.ConnectionSet
	// Duplicates counts repeated pairs dropped from Connections.
	Duplicates int
	// Skipped counts root children that are not connection elements.
	Skipped int
	// Incomplete counts connection elements missing a from or to attribute.
	Incomplete int
}

// Decode parses a patch document. A document whose root is not RAY-JACKPATCH
// holds no saved data and yields an empty set. Children other than
// connection elements are ignored, as are repeated pairs and connections
// missing an endpoint.
func Decode(r io.Reader) (domain.ConnectionSet, error) {
	rep, err := Inspect(r)
	if err != nil {
		return nil, err
	}
	if rep.Root != RootTag {
		return domain.ConnectionSet{}, nil
	}
	return rep.Connections, nil
}

// Inspect parses a document and reports what Decode would keep and drop.
// Connections are only collected under a RAY-JACKPATCH root.
func Inspect(r io.Reader) (Report, error) {
	rep := Report{Connections: domain.ConnectionSet{}}
	d := xml.NewDecoder(r)

	root, err := nextStart(d)
	if errors.Is(err, io.EOF) {
		return rep, nil
	}
	if err != nil {
		return rep, fmt.Errorf("failed to parse patch: %w", err)
	}
	rep.Root = root.Name.Local
	if rep.Root != RootTag {
		return rep, nil
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return rep, fmt.Errorf("failed to parse patch: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == connectionTag {
				c, complete := connectionOf(el)
				switch {
				case !complete:
					rep.Incomplete++
				case !rep.Connections.Add(c):
					rep.Duplicates++
				}
			} else {
				rep.Skipped++
			}
			if err := d.Skip(); err != nil {
				return rep, fmt.Errorf("failed to parse patch: %w", err)
			}
		case xml.EndElement:
			return rep, nil
		}
	}
}

func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if el, ok := tok.(xml.StartElement); ok {
			return el, nil
		}
	}
}

// connectionOf reads the from/to attributes; missing ones stay empty.
func connectionOf(el xml.StartElement) (domain.Connection, bool) {
	var c domain.Connection
	var from, to bool
	for _, a := range el.Attr {
		switch a.Name.Local {
		case "from":
			c.From, from = a.Value, true
		case "to":
			c.To, to = a.Value, true
		}
	}
	return c, from && to
}
