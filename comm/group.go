package comm

import "fmt"

// Root is the rank of the coordinating process in every
// Group.
const Root = 0

// A Tag labels the kind of a point-to-point message so
// that unrelated exchanges cannot be confused for one
// another.
type Tag int

const (
	// TagRequest carries a worker's request for a task.
	// Requests from all workers share one queue so that
	// the root serves them in arrival order.
	TagRequest Tag = iota

	// TagTransmission carries a task, or a sentinel, from
	// the root to a worker.
	TagTransmission

	numTags
)

// An envelope wraps every message sent within a Group so
// that the receiver knows who sent it.
type envelope struct {
	from    int
	payload interface{}
}

// A Group is one process's membership in a fixed set of
// cooperating processes. Process rank 0 is the root.
//
// Each process runs in its own Goroutine and owns exactly
// one Group value; Groups must not be shared.
type Group struct {
	handle *Handle
	rank   int

	// tagged[rank][tag] receives tagged point-to-point
	// messages addressed to rank. Shared by all members.
	tagged [][]*Stream

	// collective[dst][src] receives collective traffic
	// sent from src to dst. Keeping collective streams
	// source-addressed means a process that races ahead
	// into the next collective cannot have its message
	// consumed by the previous one.
	collective [][]*Stream
}

// SpawnGroup starts size process Goroutines on the loop
// and calls f once in each, passing the process's Group.
func SpawnGroup(loop *Loop, size int, f func(g *Group)) {
	if size < 1 {
		panic("group must have at least one process")
	}
	tagged := make([][]*Stream, size)
	collective := make([][]*Stream, size)
	for rank := 0; rank < size; rank++ {
		tagged[rank] = make([]*Stream, numTags)
		for tag := range tagged[rank] {
			tagged[rank][tag] = loop.Stream()
		}
		collective[rank] = make([]*Stream, size)
		for src := 0; src < size; src++ {
			collective[rank][src] = loop.Stream()
		}
	}
	for rank := 0; rank < size; rank++ {
		rank := rank
		loop.Go(func(h *Handle) {
			f(&Group{handle: h, rank: rank, tagged: tagged, collective: collective})
		})
	}
}

// Rank returns the calling process's rank.
func (g *Group) Rank() int {
	return g.rank
}

// Size returns the number of processes in the group.
func (g *Group) Size() int {
	return len(g.tagged)
}

// IsRoot reports whether the calling process is the root.
func (g *Group) IsRoot() bool {
	return g.rank == Root
}

// Send delivers a tagged message to the process with rank
// dst. It never blocks.
func (g *Group) Send(dst int, tag Tag, msg interface{}) {
	if dst < 0 || dst >= g.Size() {
		panic(fmt.Sprintf("send to rank %d outside group of size %d", dst, g.Size()))
	}
	g.handle.Push(g.tagged[dst][tag], envelope{from: g.rank, payload: msg})
}

// Recv blocks until a message with the given tag arrives
// and returns its payload and the sender's rank.
func (g *Group) Recv(tag Tag) (interface{}, int) {
	msg, _ := g.handle.Poll(g.tagged[g.rank][tag])
	env := msg.(envelope)
	return env.payload, env.from
}

// sendCollective delivers a collective message to dst on
// the caller's source-addressed stream.
func (g *Group) sendCollective(dst int, msg interface{}) {
	g.handle.Push(g.collective[dst][g.rank], msg)
}

// recvCollective blocks until a collective message from
// the given source rank arrives.
func (g *Group) recvCollective(src int) interface{} {
	msg, _ := g.handle.Poll(g.collective[g.rank][src])
	return msg
}

// Bcast distributes the root's value to every process.
// The root passes the authoritative value and gets it back
// unchanged; other processes pass the zero value and
// receive the root's.
func Bcast[T any](g *Group, value T) T {
	if g.IsRoot() {
		for rank := 1; rank < g.Size(); rank++ {
			g.sendCollective(rank, value)
		}
		return value
	}
	return g.recvCollective(Root).(T)
}

// gatherSlot is the unit of a Gather exchange. Processes
// with nothing to contribute send an absent slot, which
// the root filters out.
type gatherSlot struct {
	value   interface{}
	present bool
}

// Gather collects one value per participating process on
// the root, ordered by rank. Processes with nothing to
// contribute pass present=false. On non-root processes
// Gather returns nil.
func Gather[T any](g *Group, value T, present bool) []T {
	if !g.IsRoot() {
		g.sendCollective(Root, gatherSlot{value: value, present: present})
		return nil
	}
	out := make([]T, 0, g.Size())
	if present {
		out = append(out, value)
	}
	for src := 1; src < g.Size(); src++ {
		slot := g.recvCollective(src).(gatherSlot)
		if slot.present {
			out = append(out, slot.value.(T))
		}
	}
	return out
}

// barrierArrive and barrierRelease are the two halves of a
// Barrier handshake.
type barrierArrive struct{}
type barrierRelease struct{}

// Barrier blocks until every process in the group has
// reached it.
func (g *Group) Barrier() {
	if g.IsRoot() {
		for src := 1; src < g.Size(); src++ {
			if _, ok := g.recvCollective(src).(barrierArrive); !ok {
				panic(fmt.Sprintf("unexpected message from rank %d at barrier", src))
			}
		}
		for rank := 1; rank < g.Size(); rank++ {
			g.sendCollective(rank, barrierRelease{})
		}
		return
	}
	g.sendCollective(Root, barrierArrive{})
	if _, ok := g.recvCollective(Root).(barrierRelease); !ok {
		panic("unexpected message at barrier release")
	}
}
