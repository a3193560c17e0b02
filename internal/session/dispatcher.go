package session

import "github.com/victornm/showdown/internal/domain"

// Dispatcher delivers broadcasts to connections. Dispatch is called while the session is locked,
// so it must not block nor call back into the session.
type Dispatcher interface {
	Dispatch(bs []domain.Broadcast)
}

type DispatcherFunc func(bs []domain.Broadcast)

func (f DispatcherFunc) Dispatch(bs []domain.Broadcast) { f(bs) }

type fanout []Dispatcher

func (f fanout) Dispatch(bs []domain.Broadcast) {
	for _, d := range f {
		d.Dispatch(bs)
	}
}

// Fanout delivers every broadcast to all the given dispatchers in order. Nil dispatchers are skipped.
func Fanout(ds ...Dispatcher) Dispatcher {
	f := make(fanout, 0, len(ds))
	for _, d := range ds {
		if d != nil {
			f = append(f, d)
		}
	}

	return f
}
