package channel

import "github.com/floegence/mediactl/protocol"

// Dispatcher consumes decrypted inbound events in arrival order.
//
// Dispatch is called from the attempt loop; a slow dispatcher delays inbound processing.
type Dispatcher interface {
	Dispatch(ev protocol.Event)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ev protocol.Event)

func (f DispatcherFunc) Dispatch(ev protocol.Event) { f(ev) }

// PSKSource provides the base64 PSK and reports changes. psk.Value and psk.FileSource implement it.
type PSKSource interface {
	Current() string
	OnChange(fn func(string)) (stop func())
}
