package persist

// DispatcherMsgType names which mutation a dispatched message carries.
type DispatcherMsgType int

const (
	MsgAddPolicy DispatcherMsgType = iota
	MsgAddPolicies
	MsgRemovePolicy
	MsgRemovePolicies
	MsgRemoveFilteredPolicy
	MsgClearPolicy
	MsgUpdatePolicy
	MsgUpdatePolicies
)

// DispatcherMsg is one unit of work a DistributedEnforcer hands to its
// Dispatcher.
type DispatcherMsg struct {
	T          DispatcherMsgType
	Sec        string
	PType      string
	OldRules   [][]string
	NewRules   [][]string
	FieldIndex int
	FieldVals  []string
}

// Dispatcher is the distributed-coordination port: a
// DistributedEnforcer forwards every policy mutation to it instead of
// applying the mutation locally, and relies on the dispatcher to apply it
// to every enforcer instance in the cluster (itself included) via
// whatever consensus/broadcast mechanism it implements.
type Dispatcher interface {
	AddPolicies(sec, ptype string, rules [][]string) error
	RemovePolicies(sec, ptype string, rules [][]string) error
	RemoveFilteredPolicy(sec, ptype string, fieldIndex int, fieldValues []string) error
	ClearPolicy() error
	UpdatePolicies(sec, ptype string, oldRules, newRules [][]string) error
}
