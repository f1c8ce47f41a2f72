package depscan

import (
	"os"
	"strconv"

	"github.com/standardbeagle/a3scan/internal/classlang"
)

// ScanCPP parses one .cpp/.hpp config overlay with the Config Parser and
// emits a component-property reference for every equipment-whitelisted
// property, grounded on the cpp_parser equipment property walk (§4.I).
func ScanCPP(path string) ([]Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res := classlang.Parse(string(data), nil, path)

	var refs []Reference
	for _, rec := range res.Records {
		leaf := leafName(rec.Name)
		for _, prop := range rec.Properties {
			if !equipmentProperties[prop.Name] {
				continue
			}
			refs = append(refs, propertyReferences(prop, leaf, path)...)
		}
	}
	return refs, nil
}

func propertyReferences(prop classlang.Property, className, path string) []Reference {
	var refs []Reference
	switch prop.Value.Kind {
	case classlang.ValueString, classlang.ValueClassRef:
		if prop.Value.Str == "" {
			return nil
		}
		refs = append(refs, Reference{
			Identifier: prop.Value.Str,
			SourceFile: path,
			Line:       prop.Line,
			Kind:       KindComponentProperty,
			Context:    "Property: " + prop.Name + " in " + className,
		})
	case classlang.ValueArray:
		for i, item := range prop.Value.Array {
			if item.Kind != classlang.ValueString && item.Kind != classlang.ValueClassRef {
				continue
			}
			if item.Str == "" {
				continue
			}
			refs = append(refs, Reference{
				Identifier: item.Str,
				SourceFile: path,
				Line:       prop.Line,
				Kind:       KindComponentProperty,
				Context:    "Property: " + prop.Name + "[" + strconv.Itoa(i) + "] in " + className,
			})
		}
	}
	return refs
}

// leafName returns the final path-segment of a qualified class name
// ("Outer/Inner" -> "Inner"), mirroring the cpp_parser's use of the
// immediately enclosing class name in its context strings.
func leafName(qualified string) string {
	last := 0
	for i := 0; i < len(qualified); i++ {
		if qualified[i] == '/' {
			last = i + 1
		}
	}
	return qualified[last:]
}
