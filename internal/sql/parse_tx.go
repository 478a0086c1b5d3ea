package sql

import (
	"fmt"
	"strings"
)

// parseTx parses BEGIN, COMMIT and ROLLBACK. Accepted forms:
//
//	BEGIN
//	BEGIN TRANSACTION
//	BEGIN name
//	BEGIN TRANSACTION name
func parseTx(kind TxKind, query string) (Statement, error) {
	keyword := strings.ToUpper(kind.String())

	toks := strings.Fields(query)
	if len(toks) == 0 || strings.ToUpper(toks[0]) != keyword {
		return nil, fmt.Errorf("%s: invalid syntax", keyword)
	}
	toks = toks[1:]

	if len(toks) > 0 && strings.ToUpper(toks[0]) == "TRANSACTION" {
		toks = toks[1:]
	}

	switch len(toks) {
	case 0:
		return &TxStmt{Kind: kind}, nil
	case 1:
		if !isIdentifier(toks[0]) {
			return nil, fmt.Errorf("%s: invalid transaction name %q", keyword, toks[0])
		}
		return &TxStmt{Kind: kind, Name: toks[0]}, nil
	default:
		return nil, fmt.Errorf("%s: only '%s [TRANSACTION] [name]' is supported", keyword, keyword)
	}
}
