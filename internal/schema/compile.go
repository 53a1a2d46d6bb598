package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/ml-archive/dandy/internal/value"
)

// CompileError represents a model compilation error with source position.
type CompileError struct {
	Entity  string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := e.Field
	if e.Entity != "" {
		where = e.Entity + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// LoadModel reads and compiles a CUE data-model file. The file must define a
// top-level "model" struct whose fields are entity definitions:
//
//	model: {
//		Dandy: {
//			unique: ["id"]
//			attributes: {
//				id:   "String"
//				name: "String"
//			}
//			relationships: {
//				hats: {to: "Hat", toMany: true, ordered: true}
//			}
//		}
//	}
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	modelVal := v.LookupPath(cue.ParsePath("model"))
	if !modelVal.Exists() {
		return nil, &CompileError{Field: "model", Message: "model struct is required", Pos: v.Pos()}
	}
	return CompileModel(modelVal)
}

// CompileModel parses a CUE struct of entity definitions into a Model.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
func CompileModel(v cue.Value) (*Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var entities []*Entity
	for iter.Next() {
		name := iter.Selector().String()
		entity, err := compileEntity(name, iter.Value())
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if len(entities) == 0 {
		return nil, &CompileError{Field: "model", Message: "at least one entity is required", Pos: v.Pos()}
	}

	return NewModel(entities...)
}

func compileEntity(name string, v cue.Value) (*Entity, error) {
	e := &Entity{Name: name}

	if parentVal := v.LookupPath(cue.ParsePath("parent")); parentVal.Exists() {
		parent, err := parentVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		e.Parent = parent
	}

	if uniqueVal := v.LookupPath(cue.ParsePath("unique")); uniqueVal.Exists() {
		list, err := uniqueVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for list.Next() {
			prop, err := list.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			e.Unique = append(e.Unique, prop)
		}
	}

	if annVal := v.LookupPath(cue.ParsePath("annotations")); annVal.Exists() {
		ann, err := compileAnnotations(name, annVal)
		if err != nil {
			return nil, err
		}
		e.Annotations = ann
	}

	if attrsVal := v.LookupPath(cue.ParsePath("attributes")); attrsVal.Exists() {
		iter, err := attrsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			attr, err := compileAttribute(name, iter.Selector().String(), iter.Value())
			if err != nil {
				return nil, err
			}
			e.Attributes = append(e.Attributes, attr)
		}
	}

	if relsVal := v.LookupPath(cue.ParsePath("relationships")); relsVal.Exists() {
		iter, err := relsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			rel, err := compileRelationship(name, iter.Selector().String(), iter.Value())
			if err != nil {
				return nil, err
			}
			e.Relationships = append(e.Relationships, rel)
		}
	}

	return e, nil
}

// compileAttribute accepts either a bare type tag string or a struct with
// "type" and optional "annotations".
func compileAttribute(entity, name string, v cue.Value) (Attribute, error) {
	attr := Attribute{Name: name}

	typeName, err := v.String()
	if err != nil {
		typeVal := v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return attr, &CompileError{Entity: entity, Field: name, Message: "attribute type is required", Pos: v.Pos()}
		}
		typeName, err = typeVal.String()
		if err != nil {
			return attr, formatCUEError(err)
		}
		if annVal := v.LookupPath(cue.ParsePath("annotations")); annVal.Exists() {
			ann, err := compileAnnotations(entity, annVal)
			if err != nil {
				return attr, err
			}
			attr.Annotations = ann
		}
	}

	t, ok := value.ParsePrimitiveType(typeName)
	if !ok {
		return attr, &CompileError{Entity: entity, Field: name, Message: fmt.Sprintf("unknown attribute type %q", typeName), Pos: v.Pos()}
	}
	attr.Type = t
	return attr, nil
}

func compileRelationship(entity, name string, v cue.Value) (Relationship, error) {
	rel := Relationship{Name: name}

	toVal := v.LookupPath(cue.ParsePath("to"))
	if !toVal.Exists() {
		return rel, &CompileError{Entity: entity, Field: name, Message: "relationship destination is required", Pos: v.Pos()}
	}
	to, err := toVal.String()
	if err != nil {
		return rel, formatCUEError(err)
	}
	rel.Destination = to

	if bv := v.LookupPath(cue.ParsePath("toMany")); bv.Exists() {
		rel.ToMany, err = bv.Bool()
		if err != nil {
			return rel, formatCUEError(err)
		}
	}
	if bv := v.LookupPath(cue.ParsePath("ordered")); bv.Exists() {
		rel.Ordered, err = bv.Bool()
		if err != nil {
			return rel, formatCUEError(err)
		}
	}
	if annVal := v.LookupPath(cue.ParsePath("annotations")); annVal.Exists() {
		ann, err := compileAnnotations(entity, annVal)
		if err != nil {
			return rel, err
		}
		rel.Annotations = ann
	}

	return rel, nil
}

func compileAnnotations(entity string, v cue.Value) (map[string]string, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]string)
	for iter.Next() {
		// Annotation keys like "@primaryKey" are quoted string labels.
		sel := iter.Selector()
		key := sel.String()
		if sel.Type() == cue.StringLabel {
			key = sel.Unquoted()
		}
		val, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Entity: entity, Field: key, Message: "annotation values must be strings", Pos: iter.Value().Pos()}
		}
		out[key] = val
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
