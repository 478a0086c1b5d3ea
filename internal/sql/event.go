package sql

// EventType identifies a change notification raised by the storage layer.
type EventType int

const (
	EventUnknown EventType = iota
	EventColumnChanged
	EventRowInserted
	EventRowDeleted
	EventTableCreated
	EventTableDropped
	EventTransactionStart
	EventTransactionEnd
)

func (e EventType) String() string {
	switch e {
	case EventColumnChanged:
		return "column changed"
	case EventRowInserted:
		return "row inserted"
	case EventRowDeleted:
		return "row deleted"
	case EventTableCreated:
		return "table created"
	case EventTableDropped:
		return "table dropped"
	case EventTransactionStart:
		return "transaction start"
	case EventTransactionEnd:
		return "transaction end"
	default:
		return "unknown"
	}
}

// Event is a change notification as delivered by the storage layer. Only
// the fields relevant to Type are set. Select holds the trigger's selected
// columns read from the affected row, laid out like a single-row buffer.
type Event struct {
	Type      EventType
	Table     Handle
	TableName string

	Column     int
	ColumnName string
	OldValue   Value
	NewValue   Value

	Select []Value

	Depth int
}
