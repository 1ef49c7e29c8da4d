package generator

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gonvenience/ytbx"
	"github.com/homeport/dyff/pkg/dyff"
	yamlv3 "gopkg.in/yaml.v3"
)

// mergeMode selects collision behavior for structured merges.
type mergeMode int

const (
	// lastWins resolves scalar collisions in favor of the later module.
	lastWins mergeMode = iota

	// failOnConflict turns a scalar collision into an error instead of
	// silently dropping either value.
	failOnConflict
)

// conflictError is a structured-merge collision between two modules'
// contributions to the same sub-key.
type conflictError struct {
	// KeyPath is the dotted path of the colliding key.
	KeyPath string

	// Existing and Incoming are the colliding values.
	Existing interface{}
	Incoming interface{}
}

func (e *conflictError) Error() string {
	return fmt.Sprintf("conflicting values for key %q: %v vs %v", e.KeyPath, e.Existing, e.Incoming)
}

// parseStructured parses template source text as a YAML document (JSON is a
// subset). Placeholder tokens survive as string values.
func parseStructured(content []byte) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	if err := yamlv3.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = make(map[string]interface{})
	}
	return doc, nil
}

// deepMerge merges src into dst by key, recursing into nested maps. Arrays
// union with order-preserving dedupe. Scalar collisions follow mode: later
// value wins, or the merge fails naming the key.
func deepMerge(dst, src map[string]interface{}, mode mergeMode, prefix string) error {
	// Deterministic key order so the first conflict reported is stable.
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sv := src[k]
		keyPath := k
		if prefix != "" {
			keyPath = prefix + "." + k
		}

		dv, exists := dst[k]
		if !exists {
			dst[k] = sv
			continue
		}

		dstMap, dstIsMap := dv.(map[string]interface{})
		srcMap, srcIsMap := sv.(map[string]interface{})
		if dstIsMap && srcIsMap {
			if err := deepMerge(dstMap, srcMap, mode, keyPath); err != nil {
				return err
			}
			continue
		}

		dstList, dstIsList := dv.([]interface{})
		srcList, srcIsList := sv.([]interface{})
		if dstIsList && srcIsList {
			dst[k] = unionList(dstList, srcList)
			continue
		}

		if equalValue(dv, sv) {
			continue
		}

		if mode == failOnConflict {
			return &conflictError{KeyPath: keyPath, Existing: dv, Incoming: sv}
		}
		dst[k] = sv
	}
	return nil
}

// unionList appends src elements not already present in dst, preserving the
// first occurrence's position.
func unionList(dst, src []interface{}) []interface{} {
	result := make([]interface{}, len(dst), len(dst)+len(src))
	copy(result, dst)
	for _, sv := range src {
		found := false
		for _, dv := range result {
			if equalValue(dv, sv) {
				found = true
				break
			}
		}
		if !found {
			result = append(result, sv)
		}
	}
	return result
}

// equalValue compares two merged values by their YAML rendering. Good enough
// for manifest-sized documents where values are scalars or small composites.
func equalValue(a, b interface{}) bool {
	ab, aerr := yamlv3.Marshal(a)
	bb, berr := yamlv3.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// renderConflictDiff renders a human-readable structural diff between the
// already-merged document and the incoming contribution, so a conflict error
// shows exactly which keys disagree.
func renderConflictDiff(existing, incoming map[string]interface{}) string {
	from, err := yamlInput("merged so far", existing)
	if err != nil {
		return ""
	}
	to, err := yamlInput("incoming", incoming)
	if err != nil {
		return ""
	}

	report, err := dyff.CompareInputFiles(from, to)
	if err != nil || len(report.Diffs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	reportWriter := &dyff.HumanReport{
		Report:            report,
		DoNotInspectCerts: true,
		NoTableStyle:      true,
		OmitHeader:        true,
	}
	if err := reportWriter.WriteReport(io.Writer(&buf)); err != nil {
		return ""
	}

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// yamlInput converts a document into a dyff input file.
func yamlInput(name string, doc map[string]interface{}) (ytbx.InputFile, error) {
	data, err := yamlv3.Marshal(doc)
	if err != nil {
		return ytbx.InputFile{}, err
	}

	docs, err := ytbx.LoadYAMLDocuments(data)
	if err != nil {
		return ytbx.InputFile{}, err
	}

	return ytbx.InputFile{
		Location:  name,
		Documents: docs,
	}, nil
}

// appendText joins two text contributions with a blank-line boundary.
func appendText(existing, incoming []byte) []byte {
	trimmed := bytes.TrimRight(existing, "\n")
	addition := bytes.TrimRight(incoming, "\n")
	if len(trimmed) == 0 {
		return append(addition, '\n')
	}

	var buf bytes.Buffer
	buf.Write(trimmed)
	buf.WriteString("\n\n")
	buf.Write(addition)
	buf.WriteByte('\n')
	return buf.Bytes()
}
