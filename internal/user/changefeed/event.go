package changefeed

import "time"

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event says that something in the users table changed. Consumers refetch;
// Op is informational.
type Event struct {
	Table      string
	Op         Op
	ReceivedAt time.Time
}

func parseOp(payload string) Op {
	switch Op(payload) {
	case OpInsert, OpUpdate, OpDelete:
		return Op(payload)
	default:
		return OpUpdate
	}
}
