package session

// Destination identifies where the UI should land after an auth
// transition. Routing stays a pure function of the user so it can be
// tested without navigation side effects.
type Destination string

const (
	// DestWelcome is the unauthenticated entry point.
	DestWelcome Destination = "welcome"
	// DestBrowse is the default browsing view.
	DestBrowse Destination = "browse"
	// DestManageProperties is the lister's property-management view.
	DestManageProperties Destination = "manage-properties"
	// DestPreferences is the renter's preference-collection flow shown
	// once after registration.
	DestPreferences Destination = "preferences"
)

// RouteAfterLogin returns the destination for a freshly logged-in user.
// A nil user routes to the unauthenticated entry point.
func RouteAfterLogin(u *User) Destination {
	if u == nil {
		return DestWelcome
	}
	if u.Role == RoleLister {
		return DestManageProperties
	}
	return DestBrowse
}

// RouteAfterRegister returns the destination for a freshly registered
// user. Renters are routed through preference collection first; listers
// go straight to their management view.
func RouteAfterRegister(u *User) Destination {
	if u == nil {
		return DestWelcome
	}
	switch u.Role {
	case RoleRenter:
		return DestPreferences
	case RoleLister:
		return DestManageProperties
	default:
		return DestBrowse
	}
}
