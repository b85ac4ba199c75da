package domain

// Table is a virtual dining table. OrderCount is the sequence number of the
// last order placed for it.
type Table struct {
	Name       string
	OrderCount int64
}
