package embedstore

import "fmt"

// Record is one stored chunk with its embedding.
type Record struct {
	Text      string    `msgpack:"text" json:"text"`
	Page      int       `msgpack:"page" json:"page"`
	Source    string    `msgpack:"source" json:"source"`
	Embedding []float32 `msgpack:"embedding" json:"embedding"`
}

// Mode identifies which search pass produced a result.
type Mode string

const (
	ModeVector  Mode = "vector"
	ModeLexical Mode = "lexical"
)

// Result is a search hit. Scores are only comparable within one Mode.
type Result struct {
	Text   string  `json:"text"`
	Page   int     `json:"page"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
	Mode   Mode    `json:"mode"`
}

// Stats summarizes the store contents.
type Stats struct {
	Records   int            `json:"records"`
	Dimension int            `json:"dimension"`
	Sources   map[string]int `json:"sources"`
}

// validate checks the record fields and the embedding length against dim.
func (r Record) validate(dim int) error {
	if err := r.validateFields(); err != nil {
		return err
	}
	if len(r.Embedding) != dim {
		return &DimensionMismatchError{Want: dim, Got: len(r.Embedding)}
	}
	return nil
}

func (r Record) validateFields() error {
	if r.Text == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidRecord)
	}
	if r.Source == "" {
		return fmt.Errorf("%w: empty source", ErrInvalidRecord)
	}
	if r.Page < 0 {
		return fmt.Errorf("%w: negative page %d", ErrInvalidRecord, r.Page)
	}
	return nil
}

func (r Record) result(score float32, mode Mode) Result {
	return Result{Text: r.Text, Page: r.Page, Source: r.Source, Score: score, Mode: mode}
}
