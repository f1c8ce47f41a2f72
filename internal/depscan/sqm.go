package depscan

import (
	"os"

	"github.com/standardbeagle/a3scan/internal/classlang"
)

// ScanSQM parses mission.sqm with the Config Parser and emits a
// class-definition reference for every declared class plus a
// parent-declaration reference for every inheritance link, grounded on
// the sqm_parser dependency walk (§4.I).
//
// mission.sqm is plain class syntax so no preprocessing or grammar
// relaxation is required beyond what the Config Parser already tolerates
// (trailing commas in arrays, bare numeric property values).
func ScanSQM(path string) ([]Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res := classlang.Parse(string(data), nil, path)

	var refs []Reference
	for _, rec := range res.Records {
		if rec.Name == "" {
			continue
		}
		refs = append(refs, Reference{
			Identifier: rec.Name,
			SourceFile: path,
			Line:       rec.Line,
			Kind:       KindClassDefinition,
			Context:    "Class definition: " + rec.Name,
		})
		if rec.Parent != "" {
			refs = append(refs, Reference{
				Identifier: rec.Parent,
				SourceFile: path,
				Line:       rec.Line,
				Kind:       KindParentDeclaration,
				Context:    "Parent class of " + rec.Name,
			})
		}
		for _, prop := range rec.Properties {
			if prop.Name != "vehicle" {
				continue
			}
			if prop.Value.Kind == classlang.ValueString || prop.Value.Kind == classlang.ValueClassRef {
				if prop.Value.Str != "" {
					refs = append(refs, Reference{
						Identifier: prop.Value.Str,
						SourceFile: path,
						Line:       prop.Line,
						Kind:       KindDirectUsage,
						Context:    "Vehicle property in class " + rec.Name,
					})
				}
			}
		}
	}
	return refs, nil
}
