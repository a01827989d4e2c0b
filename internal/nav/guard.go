package nav

// Route is a navigable surface of the console.
type Route struct {
	Name string
	// RequiresAuth marks surfaces that only make sense with a live
	// session, like the dashboard.
	RequiresAuth bool
	// GuestOnly marks surfaces for the logged-out operator, like the
	// login and register forms.
	GuestOnly bool
}

// Decision is what the guard tells the navigator to do.
type Decision int

const (
	Proceed Decision = iota
	RedirectLogin
	RedirectDashboard
)

// Resolve decides whether navigation to route may proceed given the
// session state.
func Resolve(route Route, authenticated bool) Decision {
	switch {
	case route.RequiresAuth && !authenticated:
		return RedirectLogin
	case route.GuestOnly && authenticated:
		return RedirectDashboard
	default:
		return Proceed
	}
}
