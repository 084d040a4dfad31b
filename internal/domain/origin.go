package domain

// Origin tells the move store who is asking for a change. Entries owned by
// a bank statement can only be created or removed with OriginStatement;
// any other caller gets ErrMoveProtected.
type Origin int

const (
	OriginDirect Origin = iota
	OriginStatement
)

func (o Origin) String() string {
	switch o {
	case OriginStatement:
		return "statement"
	default:
		return "direct"
	}
}

// AllowsStatementMoves reports whether o may touch statement-owned entries.
func (o Origin) AllowsStatementMoves() bool {
	return o == OriginStatement
}
