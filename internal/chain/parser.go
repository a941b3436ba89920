package chain

import "encoding/json"

// JSONParser decodes the JSONRPCAdapter's raw payloads, which are just
// the JSON-RPC "result" field re-encoded with field names matching
// Block/Transaction. A chain whose node returns some other shape (RLP,
// protobuf, chain-specific hex blobs) supplies its own Parser instead.
type JSONParser struct {
	tokens map[string]string
}

// NewJSONParser returns a Parser whose Tokens() call reports the given
// static per-blockchain token map.
func NewJSONParser(tokens map[string]string) *JSONParser {
	if tokens == nil {
		tokens = map[string]string{}
	}
	return &JSONParser{tokens: tokens}
}

func (p *JSONParser) DecodeBlock(raw []byte) (Block, error) {
	var b Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return Block{}, err
	}
	return b, nil
}

func (p *JSONParser) DecodeTransaction(raw []byte) (Transaction, error) {
	var t Transaction
	if err := json.Unmarshal(raw, &t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (p *JSONParser) Tokens() map[string]string {
	return p.tokens
}
