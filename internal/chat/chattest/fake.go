// Package chattest provides scripted model fakes for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/fpang/synthetic-patients/internal/chat"
)

// Reply is one scripted response.
type Reply struct {
	Text  string
	Image chat.ImagePayload
	Err   error
}

// Script replays replies in order. Once exhausted it repeats the last reply,
// or fails if nothing was scripted.
type Script struct {
	mu      sync.Mutex
	replies []Reply
	next    int
	Prompts []string
}

func (s *Script) pop(prompt string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if len(s.replies) == 0 {
		return Reply{}, fmt.Errorf("chattest: no scripted reply for prompt %q", prompt)
	}
	i := s.next
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	} else {
		s.next++
	}
	return s.replies[i], nil
}

// Calls returns how many prompts were received.
func (s *Script) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// Text is a scripted chat.TextModel.
type Text struct{ Script }

// NewText scripts text replies.
func NewText(replies ...string) *Text {
	t := &Text{}
	for _, r := range replies {
		t.replies = append(t.replies, Reply{Text: r})
	}
	return t
}

// Then appends an arbitrary reply.
func (t *Text) Then(r Reply) *Text {
	t.replies = append(t.replies, r)
	return t
}

func (t *Text) GenerateText(_ context.Context, prompt string) (string, error) {
	r, err := t.pop(prompt)
	if err != nil {
		return "", err
	}
	return r.Text, r.Err
}

// Vision is a scripted chat.VisionModel. Answer, when set, takes precedence
// over the script and lets tests route by question.
type Vision struct {
	Script
	Answer func(question string) (string, error)
}

// NewVision scripts vision replies.
func NewVision(replies ...string) *Vision {
	v := &Vision{}
	for _, r := range replies {
		v.replies = append(v.replies, Reply{Text: r})
	}
	return v
}

// Then appends an arbitrary reply.
func (v *Vision) Then(r Reply) *Vision {
	v.replies = append(v.replies, r)
	return v
}

func (v *Vision) AskAboutImage(_ context.Context, _ chat.Image, question string) (string, error) {
	if v.Answer != nil {
		v.mu.Lock()
		v.Prompts = append(v.Prompts, question)
		v.mu.Unlock()
		return v.Answer(question)
	}
	r, err := v.pop(question)
	if err != nil {
		return "", err
	}
	return r.Text, r.Err
}

// Images is a scripted chat.ImageModel.
type Images struct{ Script }

// NewImages scripts image replies.
func NewImages(replies ...Reply) *Images {
	return &Images{Script{replies: replies}}
}

func (i *Images) GenerateImage(_ context.Context, prompt string) (chat.ImagePayload, error) {
	r, err := i.pop(prompt)
	if err != nil {
		return chat.ImagePayload{}, err
	}
	return r.Image, r.Err
}
