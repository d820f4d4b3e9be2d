package zrap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
	"zeptrion-bridge/internal/domain/model"
)

// node is a schema-less XML element. The hub's documents are small and their shape varies
// between firmware releases, so they are walked rather than bound to structs.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

var errEmptyDocument = errors.New("empty document")

func parseXML(body []byte) (*node, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyDocument
	}
	var root node
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, err
	}
	return &root, nil
}

func (n *node) name() string {
	return n.XMLName.Local
}

func (n *node) text() string {
	return strings.TrimSpace(n.Text)
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value), true
		}
	}
	return "", false
}

// find returns n itself or the first descendant with the given name, depth first.
func (n *node) find(name string) *node {
	if n.name() == name {
		return n
	}
	for i := range n.Nodes {
		if found := n.Nodes[i].find(name); found != nil {
			return found
		}
	}
	return nil
}

// fields flattens the direct children into name -> text.
func (n *node) fields() map[string]string {
	f := make(map[string]string, len(n.Nodes))
	for _, c := range n.Nodes {
		f[c.name()] = c.text()
	}
	return f
}

func decodeIdentity(body []byte) (model.HubIdentity, error) {
	root, err := parseXML(body)
	if err != nil {
		return model.HubIdentity{}, err
	}
	id := root.find("id")
	if id == nil {
		return model.HubIdentity{}, errors.New("no <id> element")
	}
	f := id.fields()
	return model.HubIdentity{
		HardwareVersion: f["hw"],
		SerialNumber:    f["sn"],
		SystemType:      f["sys"],
		FirmwareVersion: f["sw"],
		Model:           f["type"],
	}, nil
}

// decodeDescriptors accepts <chdes><ch id="1">…</ch></chdes> as well as
// <chdes><ch1>…</ch1></chdes>, keeping document order. Child elements win over attributes
// of the same name.
func decodeDescriptors(body []byte) ([]model.RawDescriptor, error) {
	root, err := parseXML(body)
	if err != nil {
		return nil, err
	}
	chdes := root.find("chdes")
	if chdes == nil {
		return nil, errors.New("no <chdes> element")
	}

	var out []model.RawDescriptor
	for _, ch := range chdes.Nodes {
		name := ch.name()
		if !strings.HasPrefix(name, "ch") {
			continue
		}
		d := model.RawDescriptor{Key: name, Fields: ch.fields()}
		// Attributes fill in fields that have no child element, e.g. <ch id="3" cat="5">.
		for _, a := range ch.Attrs {
			if _, set := d.Fields[a.Name.Local]; !set {
				d.Fields[a.Name.Local] = strings.TrimSpace(a.Value)
			}
		}
		if id, ok := ch.attr("id"); ok {
			d.Key = id
		}
		out = append(out, d)
	}
	return out, nil
}

// decodeScan returns the <val> of a chscan document, or its plain text when it has none.
func decodeScan(body []byte) (string, error) {
	root, err := parseXML(body)
	if err != nil {
		return "", err
	}
	if val := root.find("val"); val != nil {
		return val.text(), nil
	}
	var sb strings.Builder
	collectText(root, &sb)
	s := strings.TrimSpace(sb.String())
	if s == "" {
		return "", errors.New("no scan value")
	}
	return s, nil
}

func collectText(n *node, sb *strings.Builder) {
	if t := n.text(); t != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
	}
	for i := range n.Nodes {
		collectText(&n.Nodes[i], sb)
	}
}

func decodeRSSI(body []byte) (string, error) {
	root, err := parseXML(body)
	if err != nil {
		return "", err
	}
	dbm := root.find("dbm")
	if dbm == nil || dbm.text() == "" {
		return "", errors.New("no <dbm> value")
	}
	return dbm.text(), nil
}
