package extraction

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Stage identifies which parsing step produced the extracted items.
type Stage string

const (
	// StageDirect means the whole response was a JSON array.
	StageDirect Stage = "direct"
	// StageFenced means the array came from a ```json code block.
	StageFenced Stage = "fenced"
	// StageLines means the response was split into one task per non-blank line.
	StageLines Stage = "lines"
)

// Result is the outcome of parsing a model response.
type Result struct {
	Items []string
	Stage Stage
}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ParseResponse recovers an ordered list of task texts from a raw model response.
//
// The stages run in order and the first one that recognizes its input wins:
//  1. the response is a JSON array
//  2. the response contains a ```json block holding a JSON array
//  3. every non-blank line is a task
//
// Array entries are kept only when they are objects with a string "text" field that is
// non-blank after trimming. A recognized array that yields no entries is an ErrEmptyResult;
// it does not fall through to line splitting.
func ParseResponse(raw string) (Result, error) {
	if items, ok := parseTaskArray(raw); ok {
		return structuredResult(items, StageDirect)
	}

	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		if items, ok := parseTaskArray(m[1]); ok {
			return structuredResult(items, StageFenced)
		}
	}

	lines := splitLines(raw)
	if len(lines) == 0 {
		return Result{Stage: StageLines}, ErrEmptyResult
	}
	return Result{Items: lines, Stage: StageLines}, nil
}

func structuredResult(items []string, stage Stage) (Result, error) {
	if len(items) == 0 {
		return Result{Stage: stage}, ErrEmptyResult
	}
	return Result{Items: items, Stage: stage}, nil
}

// parseTaskArray reports whether s is a JSON array and returns the valid task texts in it.
func parseTaskArray(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if !gjson.Valid(s) {
		return nil, false
	}
	doc := gjson.Parse(s)
	if !doc.IsArray() {
		return nil, false
	}

	var items []string
	doc.ForEach(func(_, entry gjson.Result) bool {
		if !entry.IsObject() {
			return true
		}
		text := lastField(entry, "text")
		if text.Type != gjson.String {
			return true
		}
		if trimmed := strings.TrimSpace(text.String()); trimmed != "" {
			items = append(items, trimmed)
		}
		return true
	})
	return items, true
}

// lastField returns the last value stored under key. gjson's Get returns the first one.
func lastField(obj gjson.Result, key string) gjson.Result {
	var v gjson.Result
	obj.ForEach(func(k, val gjson.Result) bool {
		if k.String() == key {
			v = val
		}
		return true
	})
	return v
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
