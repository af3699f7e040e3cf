package orders

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCancelled Status = "Cancelled"
	StatusFulfilled Status = "Fulfilled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusCancelled: true, StatusFulfilled: true},
	StatusCancelled: {},
	StatusFulfilled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
