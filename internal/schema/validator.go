// Package schema parses and strictly validates incoming alert payloads.
// The schema is closed-world: any key outside the declared set fails
// validation, and every violation is reported in one pass.
package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/opsmux/alertgate/internal/alert"
)

//go:embed alert_schema.json
var alertSchemaJSON []byte

// ErrMalformedJSON reports a request body that is not a JSON document at all,
// as opposed to one that fails schema validation.
var ErrMalformedJSON = errors.New("request body is not valid JSON")

// FieldErrors maps a dotted field path ("_" for the document root) to a
// human-readable violation message. It is always complete: validation never
// stops at the first bad field.
type FieldErrors map[string]string

// Validator validates raw alert payloads against the incoming-alert schema.
// Safe for concurrent use.
type Validator struct {
	sch     *jsonschema.Schema
	printer *message.Printer
}

// NewValidator compiles the embedded incoming-alert schema.
func NewValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(alertSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("decode alert schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource("alert.json", doc); err != nil {
		return nil, fmt.Errorf("register alert schema: %w", err)
	}
	sch, err := c.Compile("alert.json")
	if err != nil {
		return nil, fmt.Errorf("compile alert schema: %w", err)
	}
	return &Validator{
		sch:     sch,
		printer: message.NewPrinter(language.English),
	}, nil
}

// Validate parses body and checks it against the schema. It returns the
// normalized alert on success, the complete field-error map on schema
// violations, or ErrMalformedJSON when the body does not parse.
func (v *Validator) Validate(body []byte) (*alert.Alert, FieldErrors, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, nil, ErrMalformedJSON
	}

	if err := v.sch.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, nil, fmt.Errorf("schema validation: %w", err)
		}
		fieldErrs := make(FieldErrors)
		v.collect(ve, fieldErrs)
		return nil, fieldErrs, nil
	}

	obj, ok := inst.(map[string]any)
	if !ok {
		// Unreachable once the schema's type assertion passed.
		return nil, nil, fmt.Errorf("schema validation: document is not an object")
	}
	return buildAlert(obj)
}

// collect walks the validation error tree and records one message per field,
// first occurrence wins. Structural nodes (schema refs, groups) carry no
// field-level information and are skipped.
func (v *Validator) collect(ve *jsonschema.ValidationError, out FieldErrors) {
	path := fieldPath(ve.InstanceLocation)
	switch k := ve.ErrorKind.(type) {
	case *kind.Schema, *kind.Group:
		// Container nodes; the causes hold the real violations.
	case *kind.Required:
		for _, name := range k.Missing {
			record(out, childPath(path, name), "is required")
		}
	case *kind.AdditionalProperties:
		// additionalProperties: false — the extra property itself is the path.
		for _, name := range k.Properties {
			record(out, childPath(path, name), "unknown field")
		}
	case *kind.Const:
		if path == "severity" {
			record(out, path, "must be exactly 'CRITICAL'")
		} else {
			record(out, path, k.LocalizedString(v.printer))
		}
	case *kind.Format:
		if path == "occurred_at" {
			record(out, path, "must be RFC3339 timestamp")
		} else {
			record(out, path, k.LocalizedString(v.printer))
		}
	default:
		if ve.ErrorKind != nil && len(ve.Causes) == 0 {
			record(out, path, ve.ErrorKind.LocalizedString(v.printer))
		}
	}
	for _, cause := range ve.Causes {
		v.collect(cause, out)
	}
}

func record(out FieldErrors, path, msg string) {
	if _, seen := out[path]; !seen {
		out[path] = msg
	}
}

func fieldPath(loc []string) string {
	if len(loc) == 0 {
		return "_"
	}
	return strings.Join(loc, ".")
}

func childPath(parent, name string) string {
	if parent == "_" {
		return name
	}
	return parent + "." + name
}

// buildAlert converts a schema-valid document into the canonical alert value.
// String fields are whitespace-trimmed; casing is preserved for rendering.
func buildAlert(obj map[string]any) (*alert.Alert, FieldErrors, error) {
	str := func(key string) string {
		s, _ := obj[key].(string)
		return strings.TrimSpace(s)
	}

	occurredAt, err := time.Parse(time.RFC3339, str("occurred_at"))
	if err != nil {
		return nil, FieldErrors{"occurred_at": "must be RFC3339 timestamp"}, nil
	}

	a := &alert.Alert{
		Service:     str("service"),
		Environment: str("environment"),
		ErrorCode:   str("error_code"),
		Summary:     str("summary"),
		Details:     str("details"),
		Resource:    str("resource"),
		OccurredAt:  occurredAt,
		RunbookURL:  str("runbook_url"),
	}
	if raw, ok := obj["tags"].(map[string]any); ok && len(raw) > 0 {
		a.Tags = make(map[string]string, len(raw))
		for k, val := range raw {
			s, _ := val.(string)
			a.Tags[k] = s
		}
	}
	return a, nil, nil
}
