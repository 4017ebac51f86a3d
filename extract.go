package main

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// MalformedRecordError marks a raw record that cannot be assigned a stable
// identifier. Every other defect degrades to empty fields; losing the unique
// key is the only unrecoverable case.
type MalformedRecordError struct {
	Source string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: %s", e.Source, e.Reason)
}

// ExtractRecord normalizes one raw registry payload into the canonical
// record. The raw shape varies per source; each shape has its own adapter
// and everything downstream of here sees only ResourceRecord.
func ExtractRecord(raw []byte, source string) (ResourceRecord, error) {
	doc := gjson.ParseBytes(raw)
	switch {
	case doc.Get("data.id").Exists():
		return extractWorkflowHub(doc, source)
	case doc.Get("biotoolsID").Exists():
		return extractBioTools(doc, source)
	case doc.Get("id").Exists():
		return extractFlat(doc, source)
	default:
		return ResourceRecord{}, &MalformedRecordError{Source: source, Reason: "no identifier field"}
	}
}

// extractWorkflowHub handles the WorkflowHub JSON:API detail payload
// (data.attributes.*).
func extractWorkflowHub(doc gjson.Result, source string) (ResourceRecord, error) {
	nativeID := doc.Get("data.id").String()
	if nativeID == "" {
		return ResourceRecord{}, &MalformedRecordError{Source: source, Reason: "empty data.id"}
	}

	attrs := doc.Get("data.attributes")
	rec := ResourceRecord{
		ID:          source + "/" + nativeID,
		Source:      source,
		Title:       attrs.Get("title").String(),
		Description: attrs.Get("description").String(),
		Tags:        normalizeSet(stringList(attrs.Get("tags"))),
		Topics:      normalizeSet(labelList(attrs.Get("topic_annotations"))),
		Operations:  normalizeSet(labelList(attrs.Get("operation_annotations"))),
		License:     attrs.Get("license").String(),
		DOI:         attrs.Get("doi").String(),
		Steps:       int(attrs.Get("internals.steps.#").Int()),
		CreatedAt:   formatDate(attrs.Get("created_at").String()),
		UpdatedAt:   formatDate(attrs.Get("updated_at").String()),
	}
	if self := doc.Get("data.links.self").String(); self != "" {
		rec.Link = "https://" + strings.ToLower(source) + ".eu" + self
	}
	rec.Tools = workflowTools(attrs)
	rec.Creators = workflowCreators(attrs)
	rec.Projects = dedupeKeepOrder(stringList(attrs.Get("projects")))
	return rec, nil
}

// workflowTools derives the declared tool list. Preference goes to the
// explicit tools field; Galaxy workflows and workflows without one fall back
// to a best-effort parse of the step descriptions. Free text that parses to
// nothing yields an empty list, not a failure.
func workflowTools(attrs gjson.Result) []string {
	explicit := attrs.Get("tools")
	useSteps := len(explicit.Array()) == 0 || attrs.Get("workflow_class.title").String() == "Galaxy"
	if !useSteps {
		var tools []string
		explicit.ForEach(func(_, tool gjson.Result) bool {
			tools = append(tools, tool.Get("name").String())
			return true
		})
		return dedupeKeepOrder(tools)
	}

	var tools []string
	attrs.Get("internals.steps").ForEach(func(_, step gjson.Result) bool {
		if desc := step.Get("description"); desc.Exists() && desc.Type != gjson.Null {
			tools = append(tools, shortenToolID(desc.String()))
		} else if name := step.Get("name").String(); name != "" {
			tools = append(tools, name)
		}
		return true
	})
	return dedupeKeepOrder(tools)
}

func workflowCreators(attrs gjson.Result) []string {
	var creators []string
	attrs.Get("creators").ForEach(func(_, c gjson.Result) bool {
		name := strings.TrimSpace(c.Get("given_name").String() + " " + c.Get("family_name").String())
		if name != "" {
			creators = append(creators, name)
		}
		return true
	})
	if len(creators) == 0 {
		for _, name := range strings.Split(attrs.Get("other_creators").String(), ",") {
			if name = strings.TrimSpace(name); name != "" {
				creators = append(creators, name)
			}
		}
	}
	return creators
}

// shortenToolID reduces a Galaxy toolshed path to the bare tool id.
func shortenToolID(tool string) string {
	if !strings.Contains(tool, "toolshed") {
		return tool
	}
	parts := strings.Split(tool, "/")
	if len(parts) < 2 {
		return tool
	}
	return parts[len(parts)-2]
}

// extractBioTools handles a bio.tools metadata document. The record is a
// tool itself, so the declared tool list stays empty; relevance comes from
// its EDAM annotations and description.
func extractBioTools(doc gjson.Result, source string) (ResourceRecord, error) {
	nativeID := doc.Get("biotoolsID").String()
	if nativeID == "" {
		return ResourceRecord{}, &MalformedRecordError{Source: source, Reason: "empty biotoolsID"}
	}

	var operations []string
	doc.Get("function").ForEach(func(_, fn gjson.Result) bool {
		fn.Get("operation").ForEach(func(_, op gjson.Result) bool {
			operations = append(operations, op.Get("term").String())
			return true
		})
		return true
	})

	return ResourceRecord{
		ID:          source + "/" + nativeID,
		Source:      source,
		Link:        doc.Get("homepage").String(),
		Title:       doc.Get("name").String(),
		Description: doc.Get("description").String(),
		Topics:      normalizeSet(termList(doc.Get("topic"))),
		Operations:  normalizeSet(operations),
	}, nil
}

// extractFlat handles records already in canonical shape, e.g. re-imports of
// a previously exported catalogue.
func extractFlat(doc gjson.Result, source string) (ResourceRecord, error) {
	id := doc.Get("id").String()
	if id == "" {
		return ResourceRecord{}, &MalformedRecordError{Source: source, Reason: "empty id"}
	}
	if src := doc.Get("source").String(); src != "" {
		source = src
	}
	if !strings.Contains(id, "/") {
		id = source + "/" + id
	}
	return ResourceRecord{
		ID:          id,
		Source:      source,
		Link:        doc.Get("link").String(),
		Title:       doc.Get("title").String(),
		Description: doc.Get("description").String(),
		Tags:        normalizeSet(stringList(doc.Get("tags"))),
		Topics:      normalizeSet(stringList(doc.Get("topics"))),
		Operations:  normalizeSet(stringList(doc.Get("operations"))),
		Tools:       dedupeKeepOrder(stringList(doc.Get("tools"))),
		Creators:    dedupeKeepOrder(stringList(doc.Get("creators"))),
		Projects:    dedupeKeepOrder(stringList(doc.Get("projects"))),
		License:     doc.Get("license").String(),
		DOI:         doc.Get("doi").String(),
		Steps:       int(doc.Get("steps").Int()),
		CreatedAt:   doc.Get("created_at").String(),
		UpdatedAt:   doc.Get("updated_at").String(),
	}, nil
}

func stringList(arr gjson.Result) []string {
	var out []string
	arr.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}

func labelList(arr gjson.Result) []string {
	var out []string
	arr.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.Get("label").String())
		return true
	})
	return out
}

func termList(arr gjson.Result) []string {
	var out []string
	arr.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.Get("term").String())
		return true
	})
	return out
}
