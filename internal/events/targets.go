package events

import (
	"golang.org/x/text/unicode/norm"

	"github.com/fieldwork-io/fieldwork/internal/document"
	"github.com/fieldwork-io/fieldwork/internal/form"
	"github.com/fieldwork-io/fieldwork/internal/schema"
)

// TargetKind classifies what an event-rule target id addresses.
type TargetKind int

const (
	TargetField TargetKind = iota
	TargetPage
	TargetTag
)

// KeyPathsFunc computes the concrete value-tree paths a field target
// resolves to given the current value. Repeating structures make the
// result size depend on live row membership, so the paths are always
// recomputed from the value passed in, never cached across edits.
type KeyPathsFunc func(value any) []document.Path

// Target is one addressable id of a form: a field (with its keyPath
// closure), a page, or a tag (with the field ids carrying it).
type Target struct {
	Kind     TargetKind
	ID       string
	DottedID string
	KeyPaths KeyPathsFunc
	Tagged   []string
}

// targetCatalog indexes every addressable id at one nesting level of the
// form. Ids are NFC-normalized so definitions produced by different
// tooling agree on identity.
type targetCatalog struct {
	entries map[string]*Target
}

func canonicalID(id string) string {
	return norm.NFC.String(id)
}

func (c *targetCatalog) lookup(id string) (*Target, bool) {
	t, ok := c.entries[canonicalID(id)]
	return t, ok
}

func (c *targetCatalog) put(key string, t *Target) {
	c.entries[canonicalID(key)] = t
}

// rootBase is the container closure for the top of a (sub)tree: one
// empty path, ignoring the value.
func rootBase(any) []document.Path {
	return []document.Path{nil}
}

// newTargetCatalog indexes the fields of a compiled record. base yields
// the paths of the enclosing record containers; pass rootBase at the top
// of a value (sub)tree.
func newTargetCatalog(record []*schema.FieldNode, base func(any) []document.Path) *targetCatalog {
	c := &targetCatalog{entries: make(map[string]*Target)}
	c.addRecord(record, base)
	return c
}

func (c *targetCatalog) addRecord(record []*schema.FieldNode, base func(any) []document.Path) {
	for _, node := range record {
		c.addField(node, base)
	}
}

func (c *targetCatalog) addField(node *schema.FieldNode, base func(any) []document.Path) {
	fieldID := node.Field.ID
	wrapperPaths := func(value any) []document.Path {
		containers := base(value)
		out := make([]document.Path, 0, len(containers))
		for _, p := range containers {
			out = append(out, p.Child(fieldID))
		}
		return out
	}
	target := &Target{
		Kind:     TargetField,
		ID:       fieldID,
		DottedID: node.EventKey,
		KeyPaths: func(value any) []document.Path {
			wrappers := wrapperPaths(value)
			out := make([]document.Path, 0, len(wrappers))
			for _, w := range wrappers {
				out = append(out, w.Child("value"))
			}
			return out
		},
	}
	c.put(fieldID, target)
	if node.EventKey != fieldID {
		c.put(node.EventKey, target)
	}

	switch {
	case node.Value.Record != nil:
		// recordList rows are positional: indices are recomputed from
		// the value's current row count on every call.
		rowBase := func(value any) []document.Path {
			var out []document.Path
			for _, w := range wrapperPaths(value) {
				rows, _ := document.Get(value, w.Child("value")).([]any)
				for i := range rows {
					out = append(out, w.Child("value").Index(i))
				}
			}
			return out
		}
		c.addRecord(node.Value.Record, rowBase)

	case node.Value.Rows != nil:
		// Matrix rows are fixed by the instrument: row ids are captured
		// at catalog-build time. One target per column, spanning every
		// row.
		rowIDs := make([]string, 0, len(node.Value.Rows))
		for _, row := range node.Value.Rows {
			rowIDs = append(rowIDs, row.ID)
		}
		for _, cell := range node.Value.Rows[0].Cells {
			colID := cell.Field.ID
			col := &Target{
				Kind:     TargetField,
				ID:       colID,
				DottedID: node.EventKey + "." + colID,
				KeyPaths: func(value any) []document.Path {
					var out []document.Path
					for _, w := range wrapperPaths(value) {
						for _, rowID := range rowIDs {
							out = append(out, w.Child("value", rowID, colID, "value"))
						}
					}
					return out
				},
			}
			c.put(colID, col)
			c.put(col.DottedID, col)
		}
	}
}

// addFormTargets registers page and tag entries from the form layout.
// Only the root level has pages; tags address the question elements that
// carry them.
func (c *targetCatalog) addFormTargets(f *form.Form) {
	for _, page := range f.Pages {
		c.put(page.ID, &Target{Kind: TargetPage, ID: page.ID})
	}
	tagged := make(map[string][]string)
	var tagOrder []string
	for _, page := range f.Pages {
		for _, el := range page.Elements {
			if el.Type != form.ElementQuestion || el.Options == nil {
				continue
			}
			for _, tag := range el.Tags {
				tag = canonicalID(tag)
				if _, seen := tagged[tag]; !seen {
					tagOrder = append(tagOrder, tag)
				}
				tagged[tag] = append(tagged[tag], el.Options.FieldID)
			}
		}
	}
	for _, tag := range tagOrder {
		c.put(tag, &Target{Kind: TargetTag, ID: tag, Tagged: tagged[tag]})
	}
}
