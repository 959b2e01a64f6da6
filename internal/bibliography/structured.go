package bibliography

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bibcite/internal/ir"
)

// structuredSchema constrains pre-serialized bibliographies. Two shapes are
// accepted: a list of entries, or a map from citation key to field map
// (with the entry type under "type").
const structuredSchema = `
#Scalar: string | int | bool

#Entry: {
	key:     string & !=""
	type?:   string
	fields?: [string]: #Scalar
}

#List: [...#Entry]

#Map: [string]: [string]: #Scalar
`

// defaultType is used when a structured entry names no type.
const defaultType = "misc"

// LoadError reports a structured bibliography that failed to decode or
// did not match the expected shape.
type LoadError struct {
	Source  string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

// IsStructured reports whether name has an extension LoadStructured accepts.
func IsStructured(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".cue", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadStructured decodes a pre-serialized bibliography, bypassing the
// BibTeX parser. The format is chosen by name's extension: .json and .cue
// go through CUE directly, .yaml and .yml are converted first.
//
// The returned entries are raw; pass them to New for normalization.
func LoadStructured(name string, data []byte) ([]ir.Entry, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &LoadError{Source: name, Message: err.Error()}
		}
		data = converted
	case ".json", ".cue":
	default:
		return nil, &LoadError{Source: name, Message: "unsupported structured format (want .json, .cue, .yaml)"}
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(name, err)
	}
	schema := ctx.CompileString(structuredSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile structured schema: %w", err)
	}

	switch v.IncompleteKind() {
	case cue.ListKind:
		return decodeList(name, schema.LookupPath(cue.ParsePath("#List")).Unify(v))
	case cue.StructKind:
		return decodeMap(name, schema.LookupPath(cue.ParsePath("#Map")).Unify(v))
	default:
		return nil, &LoadError{Source: name, Message: fmt.Sprintf("expected a list or map of entries, got %v", v.IncompleteKind()), Pos: v.Pos()}
	}
}

func decodeList(name string, v cue.Value) ([]ir.Entry, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(name, err)
	}
	iter, err := v.List()
	if err != nil {
		return nil, cueLoadError(name, err)
	}

	var entries []ir.Entry
	for iter.Next() {
		elem := iter.Value()
		key, err := elem.LookupPath(cue.ParsePath("key")).String()
		if err != nil {
			return nil, cueLoadError(name, err)
		}
		e := ir.Entry{Key: key, Type: defaultType}
		if tv := elem.LookupPath(cue.ParsePath("type")); tv.Exists() && tv.IsConcrete() {
			typ, err := tv.String()
			if err != nil {
				return nil, cueLoadError(name, err)
			}
			e.Type = strings.ToLower(typ)
		}
		if fv := elem.LookupPath(cue.ParsePath("fields")); fv.Exists() {
			if err := decodeFields(fv, &e); err != nil {
				return nil, cueLoadError(name, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeMap(name string, v cue.Value) ([]ir.Entry, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(name, err)
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, cueLoadError(name, err)
	}

	var entries []ir.Entry
	for iter.Next() {
		e := ir.Entry{Key: iter.Label(), Type: defaultType}
		if err := decodeFields(iter.Value(), &e); err != nil {
			return nil, cueLoadError(name, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// decodeFields copies a CUE field map into e. A "type" field sets e.Type.
func decodeFields(v cue.Value, e *ir.Entry) error {
	iter, err := v.Fields()
	if err != nil {
		return err
	}
	for iter.Next() {
		value, err := scalarString(iter.Value())
		if err != nil {
			return err
		}
		if strings.EqualFold(iter.Label(), ir.FieldType.String()) {
			e.Type = strings.ToLower(value)
			continue
		}
		e.Fields.Set(iter.Label(), value)
	}
	return nil
}

func scalarString(v cue.Value) (string, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(i, 10), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		return "", fmt.Errorf("unsupported field value kind: %v", v.Kind())
	}
}

// yamlToJSON re-encodes a YAML document as JSON so one CUE path validates
// every structured format.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert YAML: %w", err)
	}
	return out, nil
}

// cueLoadError extracts position info from CUE errors.
func cueLoadError(name string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Source: name, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Source: name, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
