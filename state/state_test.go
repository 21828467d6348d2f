package state

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/agentgraph-dev/agentgraph/llm"
)

func TestCloneIsDeep(t *testing.T) {
	s := State{
		"input": "hello",
		"nested": map[string]any{
			"count": float64(2),
		},
	}

	clone, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	clone["input"] = "changed"
	clone["nested"].(map[string]any)["count"] = float64(99)

	if s["input"] != "hello" {
		t.Errorf("original mutated: input = %v", s["input"])
	}
	if s["nested"].(map[string]any)["count"] != float64(2) {
		t.Errorf("original mutated: nested.count = %v", s["nested"].(map[string]any)["count"])
	}
}

func TestCloneNil(t *testing.T) {
	var s State
	clone, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if clone == nil {
		t.Fatal("clone of nil state should be empty, not nil")
	}
	if len(clone) != 0 {
		t.Errorf("clone has %d keys", len(clone))
	}
}

func TestCloneUnserializable(t *testing.T) {
	s := State{"bad": make(chan int)}
	if _, err := s.Clone(); err == nil {
		t.Error("expected error for unserializable state")
	}
}

func TestGetString(t *testing.T) {
	s := State{"input": "hi", "count": 3}
	if got := s.GetString("input"); got != "hi" {
		t.Errorf("GetString(input) = %q", got)
	}
	if got := s.GetString("count"); got != "" {
		t.Errorf("GetString(count) = %q, want empty", got)
	}
	if got := s.GetString("missing"); got != "" {
		t.Errorf("GetString(missing) = %q, want empty", got)
	}
}

func TestOverwriteReducer(t *testing.T) {
	r := Overwrite()
	got, err := r.Reduce("old", "new")
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got != "new" {
		t.Errorf("Reduce = %v", got)
	}
}

func TestAppendReducer(t *testing.T) {
	r := Append()

	got, err := r.Reduce(nil, "a")
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !reflect.DeepEqual(got, []any{"a"}) {
		t.Errorf("Reduce(nil, a) = %v", got)
	}

	got, err = r.Reduce(got, []any{"b", "c"})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !reflect.DeepEqual(got, []any{"a", "b", "c"}) {
		t.Errorf("Reduce = %v", got)
	}
}

func TestAppendReducerDoesNotShareBacking(t *testing.T) {
	r := Append()
	current := []any{"a"}

	merged, err := r.Reduce(current, "b")
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	merged.([]any)[0] = "mutated"

	if current[0] != "a" {
		t.Errorf("current mutated: %v", current)
	}
}

func TestSchemaApply(t *testing.T) {
	schema := NewSchema(
		Channel{Name: "log", Reducer: Append()},
	)

	current := State{"log": []any{"first"}, "output": "old"}
	update := State{"log": "second", "output": "new"}

	merged, err := schema.Apply(current, update)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if !reflect.DeepEqual(merged["log"], []any{"first", "second"}) {
		t.Errorf("log = %v", merged["log"])
	}
	if merged["output"] != "new" {
		t.Errorf("output = %v", merged["output"])
	}
	if current["output"] != "old" {
		t.Error("Apply mutated its input")
	}
}

func TestSchemaApplyNilSchema(t *testing.T) {
	var schema *Schema
	merged, err := schema.Apply(State{"a": 1}, State{"a": 2, "b": 3})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if merged["a"] != float64(2) && merged["a"] != 2 {
		t.Errorf("a = %v", merged["a"])
	}
	if _, ok := merged["b"]; !ok {
		t.Error("b missing")
	}
}

func TestSchemaInit(t *testing.T) {
	schema := NewSchema(
		Channel{Name: "messages", Reducer: Append(), Default: func() any { return []any{} }},
		Channel{Name: "output", Default: func() any { return "" }},
	)

	s, err := schema.Init(State{"input": "hi"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if s["input"] != "hi" {
		t.Errorf("input = %v", s["input"])
	}
	if _, ok := s["messages"]; !ok {
		t.Error("messages default not seeded")
	}
	if s["output"] != "" {
		t.Errorf("output = %v", s["output"])
	}
}

func TestSchemaInitCallerWins(t *testing.T) {
	schema := NewSchema(Channel{Name: "output", Default: func() any { return "default" }})

	s, err := schema.Init(State{"output": "explicit"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s["output"] != "explicit" {
		t.Errorf("output = %v", s["output"])
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	s := State{}
	update := AppendMessages(
		llm.UserMessage("hello"),
		llm.AssistantMessage("hi there"),
	)

	schema := NewSchema(MessagesChannel())
	merged, err := schema.Apply(s, update)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Simulate a checkpoint round trip.
	data, err := json.Marshal(merged)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var restored State
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	msgs, err := Messages(restored)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Role != llm.RoleUser || msgs[0].Content != "hello" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != llm.RoleAssistant || msgs[1].Content != "hi there" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
}

func TestMessagesPreservesToolCalls(t *testing.T) {
	msg := llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "calculator", Arguments: json.RawMessage(`{"expression":"1+1"}`)},
		},
	}

	s := AppendMessages(msg)
	data, _ := json.Marshal(s)
	var restored State
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	msgs, err := Messages(restored)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || len(msgs[0].ToolCalls) != 1 {
		t.Fatalf("msgs = %+v", msgs)
	}
	tc := msgs[0].ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "calculator" {
		t.Errorf("tool call = %+v", tc)
	}
}

func TestMessagesEmpty(t *testing.T) {
	msgs, err := Messages(State{})
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages", len(msgs))
	}
}

func TestMessagesWrongType(t *testing.T) {
	if _, err := Messages(State{MessagesKey: "not a list"}); err == nil {
		t.Error("expected error for non-list messages channel")
	}
}

func TestLastMessage(t *testing.T) {
	s := AppendMessages(llm.UserMessage("a"), llm.AssistantMessage("b"))

	last, ok, err := LastMessage(s)
	if err != nil {
		t.Fatalf("LastMessage: %v", err)
	}
	if !ok {
		t.Fatal("expected a message")
	}
	if last.Content != "b" {
		t.Errorf("last = %+v", last)
	}

	_, ok, err = LastMessage(State{})
	if err != nil {
		t.Fatalf("LastMessage: %v", err)
	}
	if ok {
		t.Error("expected no message for empty state")
	}
}
