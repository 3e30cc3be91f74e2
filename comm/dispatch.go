package comm

import "fmt"

// sentinel terminates a worker's dispatch loop.
type sentinel struct{}

// Dispatch hands out each task to exactly one requesting
// worker, in FIFO arrival order of requests, then answers
// every worker's final request with a sentinel. Which
// worker gets which task is not deterministic.
//
// Only the root may call Dispatch.
func Dispatch[T any](g *Group, tasks []T) {
	if !g.IsRoot() {
		panic("Dispatch called from a non-root process")
	}
	if g.Size() == 1 {
		panic("dispatch requires at least one worker")
	}
	serve := func(payload interface{}) {
		req, from := g.Recv(TagRequest)
		rank, ok := req.(int)
		if !ok || rank != from {
			panic(fmt.Sprintf("malformed dispatch request from rank %d", from))
		}
		g.Send(rank, TagTransmission, payload)
	}
	for _, task := range tasks {
		serve(task)
	}
	for worker := 1; worker < g.Size(); worker++ {
		serve(sentinel{})
	}
}

// RequestTask asks the root for the next task and blocks
// until one arrives. The second return value is false once
// the root has run out of tasks; the caller must not
// request again after that.
func RequestTask[T any](g *Group) (T, bool) {
	if g.IsRoot() {
		panic("RequestTask called from the root process")
	}
	g.Send(Root, TagRequest, g.Rank())
	payload, from := g.Recv(TagTransmission)
	if from != Root {
		panic(fmt.Sprintf("task transmission from rank %d, want root", from))
	}
	if _, done := payload.(sentinel); done {
		var zero T
		return zero, false
	}
	return payload.(T), true
}

// RunTasks drives one full dispatch round: the root
// distributes the tasks while every worker calls handle
// once per task it receives. The same round-trip protocol
// backs traveltime computation, sensitivity assembly,
// adaptive cell seeding, relocation and residual updates;
// only the task type and handler change.
//
// Any gather or barrier the round needs happens in the
// caller, after RunTasks returns.
func RunTasks[T any](g *Group, tasks []T, handle func(task T)) {
	if g.IsRoot() {
		Dispatch(g, tasks)
		return
	}
	for {
		task, ok := RequestTask[T](g)
		if !ok {
			return
		}
		handle(task)
	}
}
