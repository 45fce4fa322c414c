// Package openapi reads the backend's OpenAPI document into the small subset
// needed to browse it from the terminal.
package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// methods in the order they are listed for a path.
var methods = []string{"get", "post", "put", "patch", "delete", "head", "options"}

// Document is a parsed OpenAPI 3 document.
type Document struct {
	Version    string
	Title      string
	APIVersion string
	Operations []Operation
}

// Operation is one method on one path.
type Operation struct {
	Method      string
	Path        string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Parameters  []Parameter
	HasBody     bool
	Deprecated  bool
}

// Parameter is a path, query, header or cookie parameter.
type Parameter struct {
	Name        string
	In          string
	Required    bool
	Description string
}

// Parse loads an OpenAPI 3 document with its local references resolved.
// Path-level parameters are merged into every operation of the path; an
// operation parameter with the same name and location overrides them.
func Parse(data []byte) (*Document, error) {
	loader := openapi3.NewLoader()
	loaded, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parsing openapi document: %w", err)
	}
	if !strings.HasPrefix(loaded.OpenAPI, "3.") {
		if loaded.OpenAPI == "" {
			return nil, errors.New("parsing openapi document: missing openapi version")
		}
		return nil, fmt.Errorf("parsing openapi document: unsupported version %q", loaded.OpenAPI)
	}

	doc := &Document{Version: loaded.OpenAPI}
	if loaded.Info != nil {
		doc.Title = loaded.Info.Title
		doc.APIVersion = loaded.Info.Version
	}

	if loaded.Paths != nil {
		for path, item := range loaded.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				if methodRank(method) == len(methods) {
					continue
				}
				doc.Operations = append(doc.Operations, Operation{
					Method:      strings.ToUpper(method),
					Path:        path,
					OperationID: op.OperationID,
					Summary:     op.Summary,
					Description: op.Description,
					Tags:        op.Tags,
					Parameters:  mergeParameters(item.Parameters, op.Parameters),
					HasBody:     op.RequestBody != nil,
					Deprecated:  op.Deprecated,
				})
			}
		}
	}

	sort.Slice(doc.Operations, func(i, j int) bool {
		a, b := doc.Operations[i], doc.Operations[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return methodRank(a.Method) < methodRank(b.Method)
	})

	return doc, nil
}

// mergeParameters lists the path parameters first, each replaced in place by
// an operation parameter of the same name and location, then the remaining
// operation parameters. Unresolved references are skipped.
func mergeParameters(pathParams, opParams openapi3.Parameters) []Parameter {
	var out []Parameter
	index := map[[2]string]int{}

	add := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := Parameter{
				Name:        ref.Value.Name,
				In:          ref.Value.In,
				Required:    ref.Value.Required,
				Description: ref.Value.Description,
			}
			key := [2]string{p.Name, p.In}
			if i, ok := index[key]; ok {
				out[i] = p
				continue
			}
			index[key] = len(out)
			out = append(out, p)
		}
	}

	add(pathParams)
	add(opParams)
	return out
}

func methodRank(method string) int {
	for i, m := range methods {
		if strings.EqualFold(m, method) {
			return i
		}
	}
	return len(methods)
}

// Tags returns the tags in first-seen order; untagged operations are grouped
// under "default".
func (d *Document) Tags() []string {
	seen := map[string]bool{}
	var tags []string
	for _, op := range d.Operations {
		for _, t := range tagsOf(op) {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	return tags
}

func tagsOf(op Operation) []string {
	if len(op.Tags) == 0 {
		return []string{"default"}
	}
	return op.Tags
}
