package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled caches compiled schemas by Schema.Name. Names are unique per
// process: every schema is a package-level variable.
var compiled = struct {
	sync.RWMutex
	m map[string]*jsonschema.Schema
}{m: make(map[string]*jsonschema.Schema)}

// ExtractJSON returns the first JSON object or array in raw. It tolerates
// Markdown code fences and prose before or after the payload, which some
// models emit even when asked for bare JSON.
func ExtractJSON(raw []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		return trimmed, true
	}

	start := bytes.IndexAny(trimmed, "{[")
	if start < 0 {
		return nil, false
	}
	closer := byte('}')
	if trimmed[start] == '[' {
		closer = ']'
	}
	// Shrink from the last closer until the slice parses.
	for end := bytes.LastIndexByte(trimmed, closer); end > start; end = bytes.LastIndexByte(trimmed[:end], closer) {
		if c := trimmed[start : end+1]; json.Valid(c) {
			return c, true
		}
	}
	return nil, false
}

// Validate checks raw against s and returns a KindInvalidResponse *Error
// on mismatch. A nil Schema accepts anything.
func (s *Schema) Validate(raw json.RawMessage) error {
	if s == nil {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return invalidResponse(raw, fmt.Errorf("invalid JSON: %w", err))
	}
	sch, err := s.compile()
	if err != nil {
		return invalidResponse(raw, err)
	}
	if err := sch.Validate(doc); err != nil {
		return invalidResponse(raw, fmt.Errorf("schema %s: %w", s.Name, err))
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	if s.Name == "" {
		return nil, errors.New("schema has no name")
	}
	compiled.RLock()
	sch, ok := compiled.m[s.Name]
	compiled.RUnlock()
	if ok {
		return sch, nil
	}

	// jsonschema wants decoded JSON values, not Go literals like []string.
	buf, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", s.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", s.Name, err)
	}

	url := "mem://schemas/" + s.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", s.Name, err)
	}
	sch, err = c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", s.Name, err)
	}

	compiled.Lock()
	compiled.m[s.Name] = sch
	compiled.Unlock()
	return sch, nil
}
