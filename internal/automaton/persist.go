package automaton

import (
	"encoding/gob"
	"io"
)

// gobTransition and gobState mirror transition/State with exported
// fields, since gob cannot encode unexported fields directly.
type gobTransition struct {
	Ch byte
	To int32
}

type gobState struct {
	Len  int
	Link int32
	Next []gobTransition
	IDs  []uint32
}

// Save serializes the automaton's structural arrays (Len, Link,
// transitions) with gob. IDs are included only if still present;
// callers that DropIDs before saving produce a smaller, build-only
// snapshot, matching save_index's GSA-structure-only persistence.
func (g *GSA) Save(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(len(g.States)); err != nil {
		return err
	}
	for _, st := range g.States {
		gs := gobState{Len: st.Len, Link: st.Link, IDs: st.IDs}
		gs.Next = make([]gobTransition, len(st.next))
		for i, t := range st.next {
			gs.Next[i] = gobTransition{Ch: t.ch, To: t.to}
		}
		if err := enc.Encode(gs); err != nil {
			return err
		}
	}
	return nil
}

// Load reconstructs a GSA previously written by Save.
func Load(r io.Reader) (*GSA, error) {
	dec := gob.NewDecoder(r)
	var count int
	if err := dec.Decode(&count); err != nil {
		return nil, err
	}
	g := &GSA{States: make([]*State, count)}
	for i := 0; i < count; i++ {
		var gs gobState
		if err := dec.Decode(&gs); err != nil {
			return nil, err
		}
		st := &State{Len: gs.Len, Link: gs.Link, IDs: gs.IDs}
		st.next = make([]transition, len(gs.Next))
		for j, t := range gs.Next {
			st.next[j] = transition{ch: t.Ch, to: t.To}
		}
		g.States[i] = st
	}
	return g, nil
}
