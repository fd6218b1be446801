package rulebook

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/exprlang"
)

//go:embed schema.json
var schemaSource string

//go:embed trlc_default.yaml
var defaultRulebook []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "https://phoenix.schemas.local/rulebook.schema.json"
	if err := c.AddResource(url, strings.NewReader(schemaSource)); err != nil {
		return nil, fmt.Errorf("rulebook schema load failed: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("rulebook schema compile failed: %w", err)
	}
	return schema, nil
})

// Load reads and validates a rulebook from a YAML or JSON file, chosen by
// extension. Loading is side-effect free and repeatable: the same source
// always yields a structurally identical Rulebook.
func Load(path string) (*Rulebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rulebook: read %s: %w", path, err)
	}
	switch filepath.Ext(path) {
	case ".json":
		return LoadJSON(data)
	default:
		return LoadYAML(data)
	}
}

// LoadDefault loads the bundled TRLC rulebook.
func LoadDefault() (*Rulebook, error) {
	return LoadYAML(defaultRulebook)
}

// LoadYAML validates and decodes a YAML rulebook document.
func LoadYAML(data []byte) (*Rulebook, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("rulebook: parse yaml: %w", err)
	}
	var rb Rulebook
	if err := yaml.Unmarshal(data, &rb); err != nil {
		return nil, fmt.Errorf("rulebook: decode yaml: %w", err)
	}
	return validate(&rb, generic)
}

// LoadJSON validates and decodes a JSON rulebook document.
func LoadJSON(data []byte) (*Rulebook, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("rulebook: parse json: %w", err)
	}
	var rb Rulebook
	if err := json.Unmarshal(data, &rb); err != nil {
		return nil, fmt.Errorf("rulebook: decode json: %w", err)
	}
	return validate(&rb, generic)
}

// validate fails closed: every violated field path is reported, none is
// silently defaulted.
func validate(rb *Rulebook, generic any) (*Rulebook, error) {
	paths := structuralViolations(generic)
	paths = append(paths, semanticViolations(rb)...)
	if len(paths) > 0 {
		return nil, &ValidationError{Paths: paths}
	}
	return rb, nil
}

// structuralViolations runs the embedded JSON Schema over the generic
// document form. The generic form preserves field absence, which a typed
// decode would mask with zero values.
func structuralViolations(generic any) []string {
	schema, err := compileSchema()
	if err != nil {
		return []string{err.Error()}
	}
	jsonReady, err := toJSONTypes(generic)
	if err != nil {
		return []string{fmt.Sprintf("document not representable as JSON: %v", err)}
	}
	err = schema.Validate(jsonReady)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	return flattenSchemaError(ve)
}

// toJSONTypes round-trips the YAML generic form through JSON so the schema
// validator sees the value types it expects.
func toJSONTypes(generic any) (any, error) {
	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenSchemaError(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{fmt.Sprintf("%s: %s", loc, ve.Message)}
	}
	var paths []string
	for _, cause := range ve.Causes {
		paths = append(paths, flattenSchemaError(cause)...)
	}
	return paths
}

// semanticViolations covers the invariants the schema cannot express.
func semanticViolations(rb *Rulebook) []string {
	var paths []string

	if rb.Metadata.Version != "" {
		if _, err := semver.NewVersion(rb.Metadata.Version); err != nil {
			paths = append(paths, fmt.Sprintf("/metadata/version: %q is not semver", rb.Metadata.Version))
		}
	}

	seen := make(map[string]bool)
	for i, rule := range rb.Rules {
		at := func(field string) string { return fmt.Sprintf("/rules/%d/%s", i, field) }

		if seen[rule.RuleID] {
			paths = append(paths, fmt.Sprintf("%s: duplicate rule_id %q", at("rule_id"), rule.RuleID))
		}
		seen[rule.RuleID] = true

		if rule.Trigger.Condition != "" {
			idents, err := exprlang.Identifiers(rule.Trigger.Condition)
			if err != nil {
				paths = append(paths, fmt.Sprintf("%s: %v", at("trigger/condition"), err))
			} else {
				declared := make(map[string]bool, len(rule.Trigger.VariablesRequired))
				for _, v := range rule.Trigger.VariablesRequired {
					declared[v] = true
				}
				for _, name := range idents {
					if !declared[name] {
						paths = append(paths, fmt.Sprintf("%s: identifier %q not in variables_required", at("trigger/condition"), name))
					}
				}
			}
		}

		paths = append(paths, ladderViolations(rule.SeverityLogic, NormalizeSeverityLevel, at("severity_logic"))...)
		paths = append(paths, ladderViolations(rule.ConfidenceLogic, NormalizeConfidenceLevel, at("confidence_logic"))...)
	}
	return paths
}

func ladderViolations(ladder Ladder, normalize func(string) (string, bool), at string) []string {
	var paths []string
	keys := make([]string, 0, len(ladder))
	for key := range ladder {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	claimedBy := make(map[string]string, len(ladder))
	for _, key := range keys {
		condition := ladder[key]
		level, ok := normalize(key)
		if !ok {
			paths = append(paths, fmt.Sprintf("%s/%s: unknown level", at, key))
		} else if prev, dup := claimedBy[level]; dup {
			// Two aliases naming the same level leave which expression
			// applies undefined. Rejected outright.
			paths = append(paths, fmt.Sprintf("%s/%s: duplicates level %q already set by key %q", at, key, level, prev))
		} else {
			claimedBy[level] = key
		}
		if condition == "" {
			continue
		}
		if _, err := exprlang.Identifiers(condition); err != nil {
			paths = append(paths, fmt.Sprintf("%s/%s: %v", at, key, err))
		}
	}
	return paths
}
