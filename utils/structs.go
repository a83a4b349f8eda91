package utils

import "fmt"

/*---------------------------------------------------- K-CENTERS -----------------------------------------------------*/

// CenterPayload : broadcast by the owner of a new center
// --> position of the center in the selection order
// --> identity of the frame
// --> aligned coordinates every process scores its frames against
type CenterPayload struct {
	Ordinal int
	Owner   Identity
	Frame   Frame
}

/*---------------------------------------------------- AGGREGATION ---------------------------------------------------*/

// Listing : one center mapped back to the input it came from
type Listing struct {
	Ordinal int
	Task    int
	File    string
	Offset  int
}

// TaskResult : per-task slice of the assignment and distance vectors of one process
type TaskResult struct {
	Task        int
	File        string
	Assignments []int
	Distances   []float64
}

/*---------------------------------------------------- DISPATCH ------------------------------------------------------*/

// Kind : tag of a dispatcher message
type Kind int

const (
	Ready Kind = iota + 1
	Start
	Exit
	Done
	WriteRequest
	WriteGrant
	WriteRelease
)

var kindNames = map[Kind]string{
	Ready:        "READY",
	Start:        "START",
	Exit:         "EXIT",
	Done:         "DONE",
	WriteRequest: "WRITE-REQUEST",
	WriteGrant:   "WRITE-GRANT",
	WriteRelease: "WRITE-RELEASE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k belongs to the dispatcher protocol
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Task : indivisible unit of dispatcher work
type Task struct {
	ID   int
	File string
}
