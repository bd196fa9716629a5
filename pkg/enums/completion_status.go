package enums

// CompletionStatus is the aggregate verdict over all divisions of one original order.
type CompletionStatus string

const (
	CompletionCompleted          CompletionStatus = "completed"
	CompletionIncomplete         CompletionStatus = "incomplete"
	CompletionPartiallyCompleted CompletionStatus = "partially_completed"
)

// String implements fmt.Stringer.
func (c CompletionStatus) String() string {
	return string(c)
}
