package logger

// Standard log field keys.
//
// Using the same keys everywhere keeps log output greppable across the
// authentication chain, the provisioning service, and the directory client.
const (
	// KeyLogin is the username a login attempt or sync run is about.
	KeyLogin = "login"

	// KeyProvider is the authentication provider name ("ldap", "directory", "chain").
	KeyProvider = "provider"

	// KeyGroup is a local or external group name.
	KeyGroup = "group"

	// KeyVerdict is the tri-state authentication outcome.
	KeyVerdict = "verdict"

	// KeyError carries an error value.
	KeyError = "error"
)
