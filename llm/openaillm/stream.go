package openaillm

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/careflow-systems/hospital-core/runtime/agent/model"
	"github.com/careflow-systems/hospital-core/runtime/agent/tools"
)

// openAIStreamer adapts a Chat Completions streaming response to the
// model.Streamer interface.
type openAIStreamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream *ssestream.Stream[openai.ChatCompletionChunk]

	chunks chan model.Chunk

	errMu    sync.Mutex
	errSet   bool
	finalErr error

	metaMu   sync.RWMutex
	metadata map[string]any
}

func newOpenAIStreamer(stream *ssestream.Stream[openai.ChatCompletionChunk]) model.Streamer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &openAIStreamer{
		ctx:    ctx,
		cancel: cancel,
		stream: stream,
		chunks: make(chan model.Chunk, 32),
	}
	go s.run()
	return s
}

func (s *openAIStreamer) Recv() (model.Chunk, error) {
	select {
	case chunk, ok := <-s.chunks:
		if ok {
			return chunk, nil
		}
		if err := s.err(); err != nil {
			return model.Chunk{}, err
		}
		return model.Chunk{}, io.EOF
	case <-s.ctx.Done():
		err := s.ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		s.setErr(err)
		return model.Chunk{}, err
	}
}

func (s *openAIStreamer) Close() error {
	s.cancel()
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

func (s *openAIStreamer) Metadata() map[string]any {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	if len(s.metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}
	return out
}

func (s *openAIStreamer) run() {
	defer close(s.chunks)
	defer func() {
		if s.stream != nil {
			_ = s.stream.Close()
		}
	}()

	toolCalls := make(map[int64]*toolCallBuffer)

	for {
		select {
		case <-s.ctx.Done():
			s.setErr(s.ctx.Err())
			return
		default:
		}
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				s.setErr(err)
			} else if err := s.ctx.Err(); err != nil {
				s.setErr(err)
			} else {
				s.setErr(nil)
			}
			return
		}
		chunk := s.stream.Current()
		if err := s.handle(chunk, toolCalls); err != nil {
			s.setErr(err)
			return
		}
	}
}

func (s *openAIStreamer) handle(chunk openai.ChatCompletionChunk, toolCalls map[int64]*toolCallBuffer) error {
	if len(chunk.Choices) == 0 {
		return s.handleUsage(chunk)
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != "" {
		if err := s.emit(model.Chunk{
			Type: model.ChunkTypeText,
			Message: &model.Message{
				Role:  model.ConversationRoleAssistant,
				Parts: []model.Part{model.TextPart{Text: choice.Delta.Content}},
			},
		}); err != nil {
			return err
		}
	}

	for _, tc := range choice.Delta.ToolCalls {
		tb := toolCalls[tc.Index]
		if tb == nil {
			tb = &toolCallBuffer{}
			toolCalls[tc.Index] = tb
		}
		if tc.ID != "" {
			tb.id = tc.ID
		}
		if tc.Function.Name != "" {
			tb.name = tc.Function.Name
		}
		if tc.Function.Arguments != "" {
			tb.args.WriteString(tc.Function.Arguments)
			if err := s.emit(model.Chunk{
				Type: model.ChunkTypeToolCallDelta,
				ToolCallDelta: &model.ToolCallDelta{
					Name:  tools.Ident(tb.name),
					ID:    tb.id,
					Delta: tc.Function.Arguments,
				},
			}); err != nil {
				return err
			}
		}
	}

	if choice.FinishReason != "" {
		for _, tb := range toolCalls {
			if err := s.emit(model.Chunk{
				Type: model.ChunkTypeToolCall,
				ToolCall: &model.ToolCall{
					Name:    tools.Ident(tb.name),
					Payload: tb.payload(),
					ID:      tb.id,
				},
			}); err != nil {
				return err
			}
		}
		for k := range toolCalls {
			delete(toolCalls, k)
		}
		if err := s.handleUsage(chunk); err != nil {
			return err
		}
		return s.emit(model.Chunk{Type: model.ChunkTypeStop, StopReason: string(choice.FinishReason)})
	}

	return nil
}

func (s *openAIStreamer) handleUsage(chunk openai.ChatCompletionChunk) error {
	if chunk.Usage.TotalTokens == 0 {
		return nil
	}
	usage := model.TokenUsage{
		InputTokens:  int(chunk.Usage.PromptTokens),
		OutputTokens: int(chunk.Usage.CompletionTokens),
		TotalTokens:  int(chunk.Usage.TotalTokens),
	}
	s.recordUsage(usage)
	return s.emit(model.Chunk{Type: model.ChunkTypeUsage, UsageDelta: &usage})
}

func (s *openAIStreamer) emit(chunk model.Chunk) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case s.chunks <- chunk:
		return nil
	}
}

func (s *openAIStreamer) recordUsage(usage model.TokenUsage) {
	s.metaMu.Lock()
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}
	s.metadata["usage"] = usage
	s.metaMu.Unlock()
}

func (s *openAIStreamer) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.errSet {
		return
	}
	s.errSet = true
	s.finalErr = err
}

func (s *openAIStreamer) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.finalErr
}

type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

func (tb *toolCallBuffer) payload() json.RawMessage {
	raw := strings.TrimSpace(tb.args.String())
	if raw == "" {
		raw = "{}"
	}
	return json.RawMessage(raw)
}
