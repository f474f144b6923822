package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hulysync/beads-bridge/internal/types"
	"github.com/hulysync/beads-bridge/internal/ui"
)

// Output formats for validation reports.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeValidation renders res in the requested format.
func writeValidation(w io.Writer, res types.ValidationResult, format string) error {
	switch format {
	case "", formatText:
		writeValidationText(w, res)
		return nil
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (valid: text, json, yaml)", format)
	}
}

func writeValidationText(w io.Writer, res types.ValidationResult) {
	if res.Valid {
		fmt.Fprintf(w, "%s Parent-child links are consistent\n", ui.RenderPassIcon())
		return
	}

	fmt.Fprintf(w, "%s Found %d mismatches and %d orphans\n",
		ui.RenderFailIcon(), len(res.Mismatches), len(res.Orphans))

	if len(res.Mismatches) > 0 {
		fmt.Fprintf(w, "\n%s\n", ui.RenderCategory("Mismatches"))
		for _, m := range res.Mismatches {
			fmt.Fprintf(w, "  %s %s  %s\n", ui.RenderWarnIcon(), ui.RenderID(m.Identifier), describeMismatch(m.Type))
		}
	}

	if len(res.Orphans) > 0 {
		fmt.Fprintf(w, "\n%s\n", ui.RenderCategory("Orphans"))
		for _, o := range res.Orphans {
			fmt.Fprintf(w, "  %s %s  parent %s is not in the mapping database\n",
				ui.RenderFailIcon(), ui.RenderID(o.Identifier), ui.RenderID(o.ParentHulyID))
		}
	}
}

func describeMismatch(t types.MismatchType) string {
	switch t {
	case types.MismatchHulyOnlyParent:
		return "has a parent in Huly but not in beads"
	case types.MismatchBeadsOnlyParent:
		return "has a parent in beads but not in Huly"
	default:
		return string(t)
	}
}
