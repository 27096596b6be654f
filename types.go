package projections

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SubsystemName is the name reported in SubsystemInitialized.
const SubsystemName = "Projections"

// Logical component names managed by the subsystem coordinator.
const (
	// ComponentProjectionManager is the projection management component.
	ComponentProjectionManager = "ProjectionManager"

	// ComponentCoreCoordinator is the component that owns the worker partitions.
	ComponentCoreCoordinator = "ProjectionCoreCoordinator"
)

// ComponentCount is the number of logical components the subsystem waits for.
const ComponentCount = 2

// CorrelationID fences one start/stop generation of the subsystem from the next.
// Every command and acknowledgment belonging to a cycle carries the same CorrelationID.
type CorrelationID string

// NewCorrelationID mints a fresh correlation id.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.New().String())
}

// String returns the id as a plain string.
func (id CorrelationID) String() string {
	return string(id)
}

// StopToken identifies a single worker partition when stopping its sub-components.
// Tokens are minted once per partition when the core coordinator is constructed and
// live in a different namespace than CorrelationID.
type StopToken string

// NewStopToken mints a fresh partition stop token.
func NewStopToken() StopToken {
	return StopToken(uuid.New().String())
}

// String returns the token as a plain string.
func (t StopToken) String() string {
	return string(t)
}

// RunMode controls which projections a node executes.
type RunMode int

const (
	// RunModeNone runs only the event readers.
	RunModeNone RunMode = iota

	// RunModeSystem runs system projections.
	RunModeSystem

	// RunModeAll runs system and user projections.
	RunModeAll
)

// ExecutesProjections reports whether the run mode starts the projection core service.
func (m RunMode) ExecutesProjections() bool {
	return m >= RunModeSystem
}

// String returns the lower case name of the run mode.
func (m RunMode) String() string {
	switch m {
	case RunModeNone:
		return "none"
	case RunModeSystem:
		return "system"
	case RunModeAll:
		return "all"
	default:
		return fmt.Sprintf("RunMode(%d)", int(m))
	}
}

// ParseRunMode parses a run mode name, case-insensitively.
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return RunModeNone, nil
	case "system":
		return RunModeSystem, nil
	case "all":
		return RunModeAll, nil
	default:
		return RunModeNone, fmt.Errorf("%w: %q", ErrUnknownRunMode, s)
	}
}

// NodeRole is the cluster membership role of this node.
type NodeRole string

const (
	// NodeRoleUnknown is the role before the cluster has reported one.
	NodeRoleUnknown NodeRole = "unknown"

	// NodeRoleLeader is the only role under which the subsystem may run.
	NodeRoleLeader NodeRole = "leader"

	// NodeRoleFollower indicates another node is leading.
	NodeRoleFollower NodeRole = "follower"
)

// ParseNodeRole parses a node role name.
func ParseNodeRole(s string) (NodeRole, error) {
	switch NodeRole(strings.ToLower(strings.TrimSpace(s))) {
	case NodeRoleUnknown, "":
		return NodeRoleUnknown, nil
	case NodeRoleLeader:
		return NodeRoleLeader, nil
	case NodeRoleFollower:
		return NodeRoleFollower, nil
	default:
		return NodeRoleUnknown, fmt.Errorf("%w: %q", ErrUnknownNodeRole, s)
	}
}

// SubsystemState represents the lifecycle state of the projection subsystem.
type SubsystemState string

const (
	// SubsystemStateNotReady indicates the node core has not reported ready yet.
	SubsystemStateNotReady SubsystemState = "not_ready"

	// SubsystemStateReady indicates the node core is ready and the subsystem may start.
	SubsystemStateReady SubsystemState = "ready"

	// SubsystemStateStarting indicates components were told to start and have not all reported.
	SubsystemStateStarting SubsystemState = "starting"

	// SubsystemStateStarted indicates every component reported started.
	SubsystemStateStarted SubsystemState = "started"

	// SubsystemStateStopping indicates components were told to stop and have not all reported.
	SubsystemStateStopping SubsystemState = "stopping"

	// SubsystemStateStopped indicates every component reported stopped.
	SubsystemStateStopped SubsystemState = "stopped"
)

// SubsystemStates lists every subsystem state in lifecycle order.
func SubsystemStates() []SubsystemState {
	return []SubsystemState{
		SubsystemStateNotReady,
		SubsystemStateReady,
		SubsystemStateStarting,
		SubsystemStateStarted,
		SubsystemStateStopping,
		SubsystemStateStopped,
	}
}

// CoreState represents the lifecycle state of the core coordinator.
type CoreState string

const (
	// CoreStateStopped indicates no sub-component is running or pending.
	CoreStateStopped CoreState = "stopped"

	// CoreStateStarting indicates start commands were fanned out and acks are outstanding.
	CoreStateStarting CoreState = "starting"

	// CoreStateStarted indicates every expected sub-component acknowledged its start.
	CoreStateStarted CoreState = "started"

	// CoreStateStopping indicates stop commands were fanned out and acks are outstanding.
	CoreStateStopping CoreState = "stopping"
)

// CoreStates lists every core coordinator state in lifecycle order.
func CoreStates() []CoreState {
	return []CoreState{CoreStateStopped, CoreStateStarting, CoreStateStarted, CoreStateStopping}
}

// SubComponentKind identifies one of the per-partition sub-components.
type SubComponentKind int

const (
	// SubComponentReader is the event reader core service.
	SubComponentReader SubComponentKind = iota

	// SubComponentCoreService is the projection core service. It depends on the reader.
	SubComponentCoreService

	// SubComponentCommandReader is the command reader of the projection core service.
	SubComponentCommandReader
)

// String returns the stable component name of the sub-component.
func (k SubComponentKind) String() string {
	switch k {
	case SubComponentReader:
		return "EventReaderCoreService"
	case SubComponentCoreService:
		return "ProjectionCoreService"
	case SubComponentCommandReader:
		return "ProjectionCoreServiceCommandReader"
	default:
		return fmt.Sprintf("SubComponentKind(%d)", int(k))
	}
}

// StandardProjections returns the built-in projections that are enabled once after creation
// when the subsystem is configured to start them.
func StandardProjections() []string {
	return []string{
		"$by_category",
		"$stream_by_category",
		"$streams",
		"$by_event_type",
		"$by_correlation_id",
	}
}
