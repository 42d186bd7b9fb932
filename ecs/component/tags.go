package component

// GridTag marks a rigid grid body: shuttles, stations and debris that
// autopilots steer around.
type GridTag struct{}

var GridTagComponent = NewComponent[GridTag]()

// Name is a human-readable label used by consoles and logs.
type Name struct {
	Value string
}

var NameComponent = NewComponent[Name]()
