package provider

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math"
	"strconv"
	"sync"
)

// Stub is a deterministic Provider for tests and offline use.
// The same text always yields the same unit vector. Vectors and completions
// can be pinned per input, and failures injected per text or globally.
type Stub struct {
	dim int

	mu          sync.Mutex
	vectors     map[string][]float32
	failures    map[string]error
	failAll     error
	completions map[string]string
	prompts     []string
	embedCalls  int

	// DefaultCompletion is returned for prompts without a pinned completion.
	DefaultCompletion string
}

var _ Provider = (*Stub)(nil)

// NewStub creates a Stub producing vectors of length dim.
func NewStub(dim int) *Stub {
	if dim <= 0 {
		dim = 128
	}
	return &Stub{
		dim:               dim,
		vectors:           make(map[string][]float32),
		failures:          make(map[string]error),
		completions:       make(map[string]string),
		DefaultCompletion: "stub completion",
	}
}

// SetVector pins the vector returned for text.
func (s *Stub) SetVector(text string, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[text] = vec
}

// FailOn makes Embed(text) return err; nil clears it.
func (s *Stub) FailOn(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, text)
		return
	}
	s.failures[text] = err
}

// FailAll makes every Embed call return err; nil clears it.
func (s *Stub) FailAll(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = err
}

// SetCompletion pins the completion returned for prompt.
func (s *Stub) SetCompletion(prompt, completion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions[prompt] = completion
}

// Prompts returns every prompt passed to Complete, in call order.
func (s *Stub) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// EmbedCalls returns how many times Embed was called.
func (s *Stub) EmbedCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embedCalls
}

func (s *Stub) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embedCalls++

	if s.failAll != nil {
		return nil, s.failAll
	}
	if err, ok := s.failures[text]; ok {
		return nil, err
	}
	if vec, ok := s.vectors[text]; ok {
		return append([]float32(nil), vec...), nil
	}
	return hashVector(text, s.dim), nil
}

func (s *Stub) Complete(_ context.Context, prompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if c, ok := s.completions[prompt]; ok {
		return c
	}
	return s.DefaultCompletion
}

// hashVector derives a unit vector from md5 digests of text, four
// components per digest block.
func hashVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	var sum float64
	for block := 0; block*4 < dim; block++ {
		digest := md5.Sum([]byte(text + "#" + strconv.Itoa(block)))
		for j := 0; j < 4 && block*4+j < dim; j++ {
			seed := binary.LittleEndian.Uint32(digest[j*4:])
			v := float64(seed%2000)/1000.0 - 1.0
			vec[block*4+j] = float32(v)
			sum += v * v
		}
	}
	if sum == 0 {
		vec[0] = 1
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
