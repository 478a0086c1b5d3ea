// Package mql compiles logical statements into reusable, parameterizable
// form and executes them against a storage.Engine, packaging every outcome
// as a result.Result.
package mql

import (
	"fmt"

	"mqldb/internal/result"
	"mqldb/internal/sql"
)

// Kind identifies the operation a statement performs.
type Kind int

const (
	KindShowTables Kind = iota
	KindDescribe
	KindCreateTable
	KindDropTable
	KindBegin
	KindCommit
	KindRollback
	KindInsert
	KindUpdate
	KindDelete
	KindSelect
)

func (k Kind) String() string {
	switch k {
	case KindShowTables:
		return "show tables"
	case KindDescribe:
		return "describe"
	case KindCreateTable:
		return "create table"
	case KindDropTable:
		return "drop table"
	case KindBegin:
		return "begin"
	case KindCommit:
		return "commit"
	case KindRollback:
		return "rollback"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindSelect:
		return "select"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RefKind tells whether a Ref addresses a bind slot or a constant.
type RefKind int

const (
	RefBound RefKind = iota
	RefConstant
)

// Ref locates an operand's value in a statement's value pool.
type Ref struct {
	Kind  RefKind
	Index int
}

func Bound(i int) Ref { return Ref{Kind: RefBound, Index: i} }
func Constant(i int) Ref { return Ref{Kind: RefConstant, Index: i} }

func (r Ref) String() string {
	if r.Kind == RefBound {
		return fmt.Sprintf("?%d", r.Index)
	}
	return fmt.Sprintf("#%d", r.Index)
}

// slot is one entry of the value pool. Bind slots carry the type they
// were declared with; used is false for slots no operand references.
type slot struct {
	value sql.Value
	typ   sql.DataType
	used  bool
	bound bool
}

// cond is a condition entry whose variable operand, if any, was replaced
// by a pool reference.
type cond struct {
	entry sql.CondEntry
	ref   Ref
}

// Statement is a compiled statement. It owns copies of everything it was
// compiled from and can be bound and executed any number of times. A
// Statement is not safe for concurrent use.
type Statement struct {
	kind Kind

	table  sql.Handle
	name   string
	flags  sql.TableFlags
	ignore bool

	defs   []sql.Column       // create table
	cols   []sql.ColumnDesc   // insert, update
	sel    []result.RowColumn // select
	stride int

	conds  []cond
	values [][]Ref // per row, one Ref per entry of cols

	nbind int
	pool  []slot // nbind bind slots, then the constants
}

func (s *Statement) Kind() Kind { return s.kind }
func (s *Statement) Table() sql.Handle { return s.table }
func (s *Statement) NumBind() int { return s.nbind }
func (s *Statement) NumConst() int { return len(s.pool) - s.nbind }
func (s *Statement) HasParameters() bool { return s.nbind > 0 }

// SlotType returns the declared type of bind slot i.
func (s *Statement) SlotType(i int) (sql.DataType, error) {
	if i < 0 || i >= s.nbind {
		return sql.TypeUnknown, fmt.Errorf("slot %d of %d: %w", i, s.nbind, ErrSlotRange)
	}
	return s.pool[i].typ, nil
}
