package state

import (
	"encoding/json"
	"fmt"

	"github.com/agentgraph-dev/agentgraph/llm"
)

// MessagesKey is the conventional channel holding the conversation history.
const MessagesKey = "messages"

// MessagesChannel returns the standard messages channel: an appending list
// of llm.Message values starting empty.
func MessagesChannel() Channel {
	return Channel{
		Name:    MessagesKey,
		Reducer: Append(),
		Default: func() any { return []any{} },
	}
}

// Messages decodes the conversation history stored under MessagesKey.
// Checkpoint round trips leave the channel as []any of map[string]any, so
// the value is normalized back into typed messages. A missing channel
// yields an empty slice.
func Messages(s State) ([]llm.Message, error) {
	raw, ok := s[MessagesKey]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []llm.Message:
		out := make([]llm.Message, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]llm.Message, 0, len(v))
		for i, item := range v {
			msg, err := toMessage(item)
			if err != nil {
				return nil, fmt.Errorf("messages[%d]: %w", i, err)
			}
			out = append(out, msg)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("messages channel holds %T, want a message list", raw)
	}
}

func toMessage(v any) (llm.Message, error) {
	switch m := v.(type) {
	case llm.Message:
		return m, nil
	case map[string]any:
		data, err := json.Marshal(m)
		if err != nil {
			return llm.Message{}, err
		}
		var msg llm.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return llm.Message{}, err
		}
		return msg, nil
	default:
		return llm.Message{}, fmt.Errorf("unexpected element type %T", v)
	}
}

// AppendMessages returns a partial update that appends msgs to the
// conversation history. Use the result as a node's return value so the
// messages channel reducer performs the merge.
func AppendMessages(msgs ...llm.Message) State {
	items := make([]any, len(msgs))
	for i, m := range msgs {
		items[i] = m
	}
	return State{MessagesKey: items}
}

// LastMessage returns the most recent message in the history, or false when
// the history is empty.
func LastMessage(s State) (llm.Message, bool, error) {
	msgs, err := Messages(s)
	if err != nil {
		return llm.Message{}, false, err
	}
	if len(msgs) == 0 {
		return llm.Message{}, false, nil
	}
	return msgs[len(msgs)-1], true, nil
}
