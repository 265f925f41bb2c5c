// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package asset

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Level classifies a Message produced while walking a descriptor.
type Level int

const (
	Success Level = iota
	Warning
	ParseError
	Fail
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case ParseError:
		return "error"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Message is one diagnostic accumulated while walking a descriptor.
type Message struct {
	Level Level
	Text  string
}

// Result is returned by Cursor.Finalize: the overall status plus every
// message recorded along the way.
type Result struct {
	OK       bool
	Messages []Message
}

// Cursor is a typed, cursor-style reader over a parsed descriptor
// document (spec §4.3, §6.1). It stands in for the out-of-scope
// XML/YAML parser proper: callers never see a raw yaml.Node. Any Fail
// level message poisons the cursor — every subsequent call becomes a
// no-op that returns early, matching the C++ original's AssetParser.
type Cursor struct {
	stack    []*yaml.Node
	messages []Message
	poisoned bool
}

// NewCursor parses data as a YAML document whose single top-level key
// is "IonAsset" and returns a Cursor positioned on that IonAsset root
// element.
func NewCursor(data []byte) (*Cursor, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newErr(IOError, "descriptor is not valid YAML: %s", err)
	}
	if len(doc.Content) == 0 {
		return nil, newErr(IOError, "descriptor is empty")
	}
	top := doc.Content[0]
	root := mapGet(top, "IonAsset")
	if root == nil {
		return nil, newErr(ParserFail, "descriptor missing root IonAsset element")
	}
	return &Cursor{stack: []*yaml.Node{root}}, nil
}

func mapGet(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func (c *Cursor) current() *yaml.Node { return c.stack[len(c.stack)-1] }

// record appends a message; a Fail message poisons the cursor.
func (c *Cursor) record(level Level, format string, args ...interface{}) {
	c.messages = append(c.messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
	if level == Fail {
		c.poisoned = true
	}
}

// fail records a Fail message and returns the matching *Error.
func (c *Cursor) fail(format string, args ...interface{}) error {
	c.record(Fail, format, args...)
	return newErr(ParserFail, format, args...)
}

// BeginAsset starts reading at the IonAsset root element, where
// NewCursor already positions the cursor; it does not move the cursor.
// Given an expectedType, it validates the root's Info.type attribute.
func (c *Cursor) BeginAsset(expectedType ...string) error {
	if c.poisoned {
		return c.poisonedErr()
	}
	if len(expectedType) == 0 {
		return nil
	}
	return c.ExpectType(expectedType[0])
}

func (c *Cursor) poisonedErr() error {
	return newErr(ParserFail, "cursor is poisoned by a prior fail")
}

// EnterNode descends into the named child node, failing the parse if
// it is absent.
func (c *Cursor) EnterNode(name string) error {
	if c.poisoned {
		return c.poisonedErr()
	}
	child := mapGet(c.current(), name)
	if child == nil {
		return c.fail("missing required node %q", name)
	}
	c.stack = append(c.stack, child)
	return nil
}

// TryEnterNode descends into the named child node if present, returning
// false (without recording any message) if it is absent.
func (c *Cursor) TryEnterNode(name string) bool {
	if c.poisoned {
		return false
	}
	child := mapGet(c.current(), name)
	if child == nil {
		return false
	}
	c.stack = append(c.stack, child)
	return true
}

// ExitNode pops back to the parent of the current node.
func (c *Cursor) ExitNode() {
	if len(c.stack) > 1 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// EnterEachNode iterates every child of the current node named name —
// a single element, or each element of a YAML sequence under that key —
// calling forEach once per element with the cursor positioned on it.
func (c *Cursor) EnterEachNode(name string, forEach func(*Cursor) error) error {
	if c.poisoned {
		return c.poisonedErr()
	}
	child := mapGet(c.current(), name)
	if child == nil {
		return nil // zero occurrences is not an error; callers check counts themselves.
	}
	if child.Kind == yaml.SequenceNode {
		for _, item := range child.Content {
			c.stack = append(c.stack, item)
			err := forEach(c)
			c.ExitNode()
			if err != nil {
				return err
			}
		}
		return nil
	}
	c.stack = append(c.stack, child)
	err := forEach(c)
	c.ExitNode()
	return err
}

// AttrCallback receives the cursor (for nested ParseCurrentAttributeTyped
// style calls or diagnostics) and the raw attribute value.
type AttrCallback func(c *Cursor, value string)

// ParseAttributes enters nodeName and invokes each callback with the
// matching attribute's value. Any attribute missing from the
// descriptor fails the parse.
func (c *Cursor) ParseAttributes(nodeName string, attrs map[string]AttrCallback) error {
	if err := c.EnterNode(nodeName); err != nil {
		return err
	}
	defer c.ExitNode()
	for key, cb := range attrs {
		v := mapGet(c.current(), key)
		if v == nil {
			return c.fail("missing required attribute %q on %q", key, nodeName)
		}
		cb(c, v.Value)
	}
	return nil
}

// TryParseAttributes is ParseAttributes without the poisoning: missing
// attributes, or a missing node entirely, are silently skipped.
func (c *Cursor) TryParseAttributes(nodeName string, attrs map[string]AttrCallback) {
	if !c.TryEnterNode(nodeName) {
		return
	}
	defer c.ExitNode()
	for key, cb := range attrs {
		if v := mapGet(c.current(), key); v != nil {
			cb(c, v.Value)
		}
	}
}

// ParseNodeValue enters the named node, reads its scalar leaf value —
// either the node itself if it is a bare scalar, or its "value"
// attribute — and invokes cb with it.
func (c *Cursor) ParseNodeValue(name string, cb AttrCallback) error {
	if err := c.EnterNode(name); err != nil {
		return err
	}
	defer c.ExitNode()
	cur := c.current()
	if cur.Kind == yaml.ScalarNode {
		cb(c, cur.Value)
		return nil
	}
	if v := mapGet(cur, "value"); v != nil {
		cb(c, v.Value)
		return nil
	}
	return c.fail("node %q has no scalar value", name)
}

// TryParseNodeValue is ParseNodeValue without poisoning: a missing node
// returns false and records nothing.
func (c *Cursor) TryParseNodeValue(name string, cb AttrCallback) bool {
	if !c.TryEnterNode(name) {
		return false
	}
	defer c.ExitNode()
	cur := c.current()
	if cur.Kind == yaml.ScalarNode {
		cb(c, cur.Value)
		return true
	}
	if v := mapGet(cur, "value"); v != nil {
		cb(c, v.Value)
		return true
	}
	return false
}

// ChildNames returns the mapping-key names directly under the current
// node, in document order. Used to copy a Resource/* subtree's child
// element names verbatim into Definition.Info.ResourceUsage.
func (c *Cursor) ChildNames() []string {
	cur := c.current()
	if cur.Kind != yaml.MappingNode {
		return nil
	}
	names := make([]string, 0, len(cur.Content)/2)
	for i := 0; i+1 < len(cur.Content); i += 2 {
		names = append(names, cur.Content[i].Value)
	}
	return names
}

// ParseCurrentAttributeTyped reads the named attribute of the current
// node and converts it with parse. A missing attribute or a conversion
// failure records a ParseError message (not Fail) and returns a
// StringConversionError without poisoning further
// unrelated attributes the caller might still want to try — callers
// that need strict failure should check the returned error themselves.
func ParseCurrentAttributeTyped[T any](c *Cursor, name string, parse func(string) (T, error)) (T, error) {
	var zero T
	if c.poisoned {
		return zero, c.poisonedErr()
	}
	v := mapGet(c.current(), name)
	if v == nil {
		c.record(ParseError, "missing attribute %q", name)
		return zero, newErr(StringConversionError, "missing attribute %q", name)
	}
	t, err := parse(v.Value)
	if err != nil {
		c.record(ParseError, "attribute %q value %q: %s", name, v.Value, err)
		return zero, newErr(StringConversionError, "attribute %q value %q: %s", name, v.Value, err)
	}
	return t, nil
}

// ExpectType validates the current node's Info.type attribute.
func (c *Cursor) ExpectType(expected string) error {
	if c.poisoned {
		return c.poisonedErr()
	}
	info := mapGet(c.current(), "Info")
	if info == nil {
		return c.fail("missing required Info node")
	}
	typ := mapGet(info, "type")
	if typ == nil {
		return c.fail("Info node missing required type attribute")
	}
	if typ.Value != expected {
		return c.fail("expected type %q, found %q", expected, typ.Value)
	}
	return nil
}

// ExpectAttributes validates that every named attribute is present on
// the current node, without consuming their values.
func (c *Cursor) ExpectAttributes(names ...string) error {
	if c.poisoned {
		return c.poisonedErr()
	}
	for _, name := range names {
		if mapGet(c.current(), name) == nil {
			return c.fail("missing required attribute %q", name)
		}
	}
	return nil
}

// Finalize reports the accumulated messages and overall status: OK is
// false iff any Fail (or ParseError) message was recorded.
func (c *Cursor) Finalize() Result {
	ok := true
	for _, m := range c.messages {
		if m.Level == Fail || m.Level == ParseError {
			ok = false
			break
		}
	}
	return Result{OK: ok, Messages: c.messages}
}
