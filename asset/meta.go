package asset

import (
	"encoding/xml"
	"io"
)

// MetaKind is the Asset.Type field of an AssetMeta sidecar.
type MetaKind string

const (
	MetaLoad    MetaKind = "Load"
	MetaProcess MetaKind = "Process"
	MetaIgnore  MetaKind = "Ignore"
)

// Meta is the minimal parse of an `<path>.meta.xml` sidecar: only
// Asset.Type and Asset.Name are read here, the loader then re-parses
// LoaderSettings into its own typed settings struct.
type Meta struct {
	XMLName       xml.Name       `xml:"AssetMeta"`
	Asset         MetaAsset      `xml:"Asset"`
	ProcessedInfo *ProcessedInfo `xml:"ProcessedInfo"`
}

// ProcessedInfo records the output of an offline asset-processing pass:
// content hashes plus the dependency hashes it was processed against, used
// to decide whether a hot-reload needs to reprocess rather than just
// reload.
type ProcessedInfo struct {
	AssetHash    string                `xml:"AssetHash"`
	FullHash     string                `xml:"FullHash"`
	Dependencies []ProcessedDependency `xml:"Dependencies>Dependency"`
}

// ProcessedDependency is one entry of ProcessedInfo.Dependencies.
type ProcessedDependency struct {
	FullHash  string `xml:"FullHash"`
	AssetPath string `xml:"AssetPath"`
}

// MetaAsset is the Asset element of a Meta document.
type MetaAsset struct {
	Type           MetaKind `xml:"Type"`
	Name           string   `xml:"Name"`
	LoaderSettings rawXML   `xml:"LoaderSettings"`
}

// rawXML captures an element's inner XML unparsed, so the loader named by
// Asset.Name can re-parse it into its own settings type.
type rawXML struct {
	Inner []byte `xml:",innerxml"`
}

// defaultMeta is what a missing `.meta.xml` sidecar is equivalent to:
// Type=Load with no named loader (selection falls back to type+extension)
// and no loader settings.
func defaultMeta() Meta {
	return Meta{Asset: MetaAsset{Type: MetaLoad}}
}

// ParseMeta reads and parses an AssetMeta document from r. A caller that
// gets io.EOF immediately (empty stream) should treat that the same as a
// missing sidecar via defaultMeta, not as a parse error.
func ParseMeta(r io.Reader) (Meta, error) {
	var m Meta
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return Meta{}, err
	}
	return m, nil
}
