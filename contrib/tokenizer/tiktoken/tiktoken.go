// Package tiktoken adapts the tiktoken-go BPE encoder to the generation
// stage's token counter.
package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens with the encoding of a given OpenAI model. It
// implements generate.Tokenizer.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New resolves the encoding by model name first, then by encoding name
// (e.g. "gpt-4o-mini" or "cl100k_base").
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of BPE tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
