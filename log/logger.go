// Package log defines the logging sink the enforcement core is threaded
// with. There is no package-level logger: every component that logs takes
// one of these explicitly (see polyauthz.CoreEnforcer.SetLogger), keeping
// logging out of global state.
package log

// Logger is the sink every loggable component (Enforcer, Model, RoleManager)
// is injected with.
type Logger interface {
	EnableLog(bool)
	IsEnabled() bool
	LogModel(model [][]string)
	LogEnforce(matcher string, request []interface{}, result bool, explains [][]string)
	LogPolicy(policy map[string][][]string)
	LogRole(roles []string)
	LogError(err error, msg ...string)
}
