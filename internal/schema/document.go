package schema

import (
	"github.com/fieldwork-io/fieldwork/internal/document"
)

// ValidateDocument checks a whole value (sub)tree against a compiled
// record, recursing into recordList rows and matrix cells. Violation
// fields are dotted paths relative to the tree passed in.
func ValidateDocument(record []*FieldNode, value document.Map) []Violation {
	var out []Violation
	for _, node := range record {
		wrapper, _ := value[node.Field.ID].(document.Map)
		if wrapper == nil {
			wrapper = document.Map{}
		}
		for _, v := range node.Validate(wrapper) {
			v.Field = join(node.Field.ID, v.Field)
			out = append(out, v)
		}
		switch {
		case node.Value.Record != nil:
			rows, _ := wrapper["value"].([]any)
			for i, row := range rows {
				rowMap, _ := row.(document.Map)
				if rowMap == nil {
					continue
				}
				prefix := document.Path{node.Field.ID, "value"}.Index(i)
				for _, v := range ValidateDocument(node.Value.Record, rowMap) {
					v.Field = prefix.String() + "." + v.Field
					out = append(out, v)
				}
			}
		case node.Value.Rows != nil:
			grid, _ := wrapper["value"].(document.Map)
			for _, row := range node.Value.Rows {
				rowValue, _ := grid[row.ID].(document.Map)
				if rowValue == nil {
					rowValue = document.Map{}
				}
				prefix := node.Field.ID + ".value." + row.ID
				for _, v := range row.ValidateMatrixRow(rowValue) {
					v.Field = join(prefix, v.Field)
					out = append(out, v)
				}
				for _, cell := range row.Cells {
					cellWrapper, _ := rowValue[cell.Field.ID].(document.Map)
					if cellWrapper == nil {
						continue
					}
					for _, v := range cell.Value.Validate(cellWrapper["value"]) {
						v.Field = join(prefix+"."+cell.Field.ID+".value", v.Field)
						out = append(out, v)
					}
				}
			}
		}
	}
	return out
}

// FindByPath locates the field node a value-tree path addresses,
// descending through recordList rows and matrix cells. Returns nil when
// the path does not address a field.
func FindByPath(record []*FieldNode, path document.Path) *FieldNode {
	if len(path) == 0 {
		return nil
	}
	node := Find(record, path[0])
	if node == nil {
		return nil
	}
	// [field], [field value], [field value <slot>] address the node
	// itself; anything longer descends into a composite.
	if len(path) <= 3 || path[1] != "value" {
		return node
	}
	switch {
	case node.Value.Record != nil:
		// field.value.<idx>.<subfield>...
		return FindByPath(node.Value.Record, path[3:])
	case node.Value.Rows != nil:
		// field.value.<rowID>.<column>...
		for _, row := range node.Value.Rows {
			if row.ID == path[2] {
				return FindByPath(cellNodes(row), path[3:])
			}
		}
		return nil
	default:
		return node
	}
}

func cellNodes(row *MatrixRow) []*FieldNode {
	return row.Cells
}
