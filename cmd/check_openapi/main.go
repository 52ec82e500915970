package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"contactdesk/pkg/domain"
)

type openAPIDoc struct {
	Paths      map[string]map[string]any `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Enum       []string          `yaml:"enum"`
	Items      *schema           `yaml:"items"`
}

type schemaShape struct {
	Required   []string
	Properties map[string]string
}

// wireTypes are the Go types whose JSON shape the document must describe.
var wireTypes = map[string]any{
	"ContactRequest": domain.ContactRecord{},
	"OutcomeNotice":  domain.OutcomeNotice{},
}

var requiredOperations = []struct {
	path   string
	method string
}{
	{"/healthz", "get"},
	{"/api/contact", "post"},
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <contact-openapi.yaml>\n", os.Args[0])
		os.Exit(2)
	}
	doc, err := loadDoc(os.Args[1])
	if err != nil {
		exitErr(err)
	}
	if err := check(doc); err != nil {
		exitErr(err)
	}
	fmt.Println("OpenAPI consistency check passed.")
}

func check(doc openAPIDoc) error {
	for _, op := range requiredOperations {
		if _, ok := doc.Paths[op.path][op.method]; !ok {
			return fmt.Errorf("operation %s %s missing", strings.ToUpper(op.method), op.path)
		}
	}
	names := make([]string, 0, len(wireTypes))
	for name := range wireTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s, err := getSchema(doc, name)
		if err != nil {
			return err
		}
		if err := ensureSameShape(name, shapeFromSchema(s), shapeFromType(reflect.TypeOf(wireTypes[name]))); err != nil {
			return err
		}
	}
	notice, _ := getSchema(doc, "OutcomeNotice")
	if err := validateNoticeKinds(notice); err != nil {
		return err
	}
	resp, err := getSchema(doc, "ContactResponse")
	if err != nil {
		return err
	}
	if err := validateContactResponse(resp); err != nil {
		return err
	}
	errResp, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		return err
	}
	return validateErrorResponse(errResp)
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

func validateNoticeKinds(s schema) error {
	got := strings.Join(sortedCopy(s.Properties["kind"].Enum), ",")
	want := strings.Join(sortedCopy([]string{string(domain.NoticeSuccess), string(domain.NoticeError)}), ",")
	if got != want {
		return fmt.Errorf("OutcomeNotice.kind enum = [%s], want [%s]", got, want)
	}
	return nil
}

func validateContactResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ContactResponse must be object")
	}
	required := makeSet(s.Required)
	for _, field := range []string{"notice", "dismissAfterMs"} {
		if !required[field] {
			return fmt.Errorf("ContactResponse.required must include %q", field)
		}
	}
	if ref := strings.TrimSpace(s.Properties["notice"].Ref); ref != "#/components/schemas/OutcomeNotice" {
		return errors.New("ContactResponse.notice must reference OutcomeNotice")
	}
	if s.Properties["dismissAfterMs"].Type != "integer" {
		return errors.New("ContactResponse.dismissAfterMs must be integer")
	}
	return nil
}

func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	if !makeSet(s.Required)["error"] {
		return errors.New("ErrorResponse.required must include \"error\"")
	}
	if s.Properties["error"].Type != "string" {
		return errors.New("ErrorResponse.error must be string")
	}
	return nil
}

func shapeFromSchema(s schema) schemaShape {
	out := schemaShape{
		Required:   sortedCopy(s.Required),
		Properties: make(map[string]string, len(s.Properties)),
	}
	for name, prop := range s.Properties {
		out.Properties[name] = prop.Type
	}
	return out
}

// shapeFromType derives the expected shape from exported struct fields and
// their json tags. Fields without omitempty are required.
func shapeFromType(t reflect.Type) schemaShape {
	out := schemaShape{Properties: map[string]string{}}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		out.Properties[name] = jsonType(f.Type)
		if !strings.Contains(opts, "omitempty") {
			out.Required = append(out.Required, name)
		}
	}
	sort.Strings(out.Required)
	return out
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

func ensureSameShape(name string, doc, code schemaShape) error {
	if strings.Join(doc.Required, ",") != strings.Join(code.Required, ",") {
		return fmt.Errorf("%s required mismatch: doc %v vs code %v", name, doc.Required, code.Required)
	}
	if len(doc.Properties) != len(code.Properties) {
		return fmt.Errorf("%s property count mismatch: doc %d vs code %d", name, len(doc.Properties), len(code.Properties))
	}
	for key, docType := range doc.Properties {
		codeType, ok := code.Properties[key]
		if !ok {
			return fmt.Errorf("%s property %q not in code", name, key)
		}
		if docType != codeType {
			return fmt.Errorf("%s property %q type mismatch: doc %q vs code %q", name, key, docType, codeType)
		}
	}
	return nil
}

func sortedCopy(items []string) []string {
	out := append([]string(nil), items...)
	sort.Strings(out)
	return out
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
