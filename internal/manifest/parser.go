package manifest

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/handiism/nupkg-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/net/html/charset"
)

const (
	elemPropertyGroup  = "PropertyGroup"
	elemPackageVersion = "PackageVersion"
	attrInclude        = "Include"
	attrVersion        = "Version"
)

// entry is a PackageVersion element before property resolution.
type entry struct {
	id      string
	version string
}

// Parse reads the manifest at path and returns its package references.
//
// Entries with an empty Include or Version attribute are skipped. A missing
// file or a malformed document yields a nil slice and an *Error.
func Parse(path string) ([]model.PackageRef, error) {
	f, err := os.Open(path)
	if err != nil {
		kind := KindUnreadable
		if errors.Is(err, os.ErrNotExist) {
			kind = KindNotFound
		}
		return nil, &Error{Kind: kind, Path: path, Err: err}
	}
	defer f.Close()

	refs, err := ParseReader(f)
	if err != nil {
		var me *Error
		if errors.As(err, &me) {
			me.Path = path
		}
		return nil, err
	}
	return refs, nil
}

// ParseReader parses a manifest document from r.
func ParseReader(r io.Reader) ([]model.PackageRef, error) {
	props, entries, err := scan(r)
	if err != nil {
		return nil, err
	}

	refs := make([]model.PackageRef, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, model.PackageRef{
			ID:      e.id,
			Version: strings.TrimSpace(props.Expand(e.version)),
		})
	}
	return refs, nil
}

// scan walks the whole document once, collecting property definitions and
// raw package entries. Resolution happens afterwards so that properties
// defined after a PackageVersion element still apply to it.
func scan(r io.Reader) (*Properties, []entry, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	props := NewProperties()

	var (
		entries   []entry
		depth     int
		sawRoot   bool
		groups    []int // depths of open PropertyGroup elements
		propName  string
		propDepth int
		propValue strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, malformed(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			sawRoot = true

			// PackageVersion counts wherever it appears, even inside a
			// PropertyGroup or a property value.
			if t.Name.Local == elemPackageVersion {
				id, version := attr(t, attrInclude), attr(t, attrVersion)
				if id != "" && version != "" {
					entries = append(entries, entry{id: id, version: version})
				}
				continue
			}
			if propName != "" {
				continue
			}

			switch {
			case t.Name.Local == elemPropertyGroup:
				groups = append(groups, depth)
			case len(groups) > 0 && groups[len(groups)-1] == depth-1:
				propName = t.Name.Local
				propDepth = depth
				propValue.Reset()
			}

		case xml.CharData:
			if propName != "" {
				propValue.Write(t)
			}

		case xml.EndElement:
			switch {
			case propName != "" && depth == propDepth:
				props.Define(propName, propValue.String())
				propName = ""
			case propName == "" && len(groups) > 0 && groups[len(groups)-1] == depth:
				groups = groups[:len(groups)-1]
			}
			depth--
		}
	}

	if !sawRoot {
		return nil, nil, malformed(goerr.New("document has no root element"))
	}

	return props, entries, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func malformed(err error) error {
	return &Error{Kind: KindMalformed, Err: goerr.Wrap(err, "failed to decode manifest")}
}
