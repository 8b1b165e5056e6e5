// Package valueio implements pdfio's value parser collaborator: it turns a
// token.Reader into an object.Value, collapsing "<int> <int> R" into an
// object.Reference and leaving the "stream" keyword, if any, for the caller
// to consume (the value parser only ever produces the dictionary header;
// recording where the stream body starts is the loader's job, since that
// requires the raw byte cursor position right after the keyword).
package valueio

import (
	"fmt"

	"github.com/Lance219/pdfio/object"
	"github.com/Lance219/pdfio/token"
)

// Read parses one value from tr.
func Read(tr *token.Reader) (object.Value, error) {
	tok, err := tr.Get()
	if err != nil {
		return nil, err
	}
	return readFrom(tr, tok)
}

func readFrom(tr *token.Reader, tok token.Token) (object.Value, error) {
	switch tok.Kind {
	case token.Name:
		return object.Name(tok.Text), nil
	case token.LiteralString:
		return object.String{Bytes: tok.Bytes, Hex: false}, nil
	case token.HexString:
		return object.String{Bytes: tok.Bytes, Hex: true}, nil
	case token.ArrayStart:
		return readArray(tr)
	case token.DictStart:
		return readDict(tr)
	case token.Number:
		return readNumberOrReference(tr, tok)
	case token.Keyword:
		switch tok.Text {
		case "true":
			return object.Boolean(true), nil
		case "false":
			return object.Boolean(false), nil
		case "null":
			return object.Null{}, nil
		}
		return nil, fmt.Errorf("unexpected keyword %q", tok.Text)
	}
	return nil, fmt.Errorf("unexpected token kind %v", tok.Kind)
}

// readNumberOrReference implements the "N G R" lookahead: a bare integer is
// only a Reference if it is immediately followed by another integer and
// then the keyword "R". Any mismatch pushes the lookahead tokens back onto
// the reader's stack, in reverse order, so the caller sees them untouched.
func readNumberOrReference(tr *token.Reader, first token.Token) (object.Value, error) {
	if !first.IsInt {
		return object.Real(first.Float), nil
	}
	second, err := tr.Get()
	if err != nil {
		return object.Integer(first.Int), nil
	}
	if second.Kind != token.Number || !second.IsInt {
		tr.Push(second)
		return object.Integer(first.Int), nil
	}
	third, err := tr.Get()
	if err != nil || third.Kind != token.Keyword || third.Text != "R" {
		if err == nil {
			tr.Push(third)
		}
		tr.Push(second)
		return object.Integer(first.Int), nil
	}
	return object.Reference{Num: int(first.Int), Gen: int(second.Int)}, nil
}

func readArray(tr *token.Reader) (object.Value, error) {
	arr := object.NewArray()
	for {
		tok, err := tr.Get()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.ArrayEnd {
			return arr, nil
		}
		val, err := readFrom(tr, tok)
		if err != nil {
			return nil, err
		}
		arr.Append(val)
	}
}

func readDict(tr *token.Reader) (object.Value, error) {
	dict := object.NewDictionary()
	for {
		tok, err := tr.Get()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.DictEnd {
			return dict, nil
		}
		if tok.Kind != token.Name {
			return nil, fmt.Errorf("expected dictionary key, got token kind %v", tok.Kind)
		}
		key := object.Name(tok.Text)
		val, err := Read(tr)
		if err != nil {
			return nil, err
		}
		dict.Set(key, val)
	}
}
