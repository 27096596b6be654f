package projections

import "time"

// Message is anything that can be published on a bus or queue.
type Message interface {
	// MessageType returns the stable name used for subscriptions and logging.
	MessageType() string
}

// Publisher accepts messages for asynchronous delivery.
// Publish must not block waiting for the message to be handled.
type Publisher interface {
	Publish(msg Message)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(msg Message)

// Publish calls f(msg).
func (f PublisherFunc) Publish(msg Message) {
	f(msg)
}

// Envelope carries the reply to a request message back to its sender.
type Envelope interface {
	ReplyWith(msg Message)
}

// EnvelopeFunc adapts a function to the Envelope interface.
type EnvelopeFunc func(msg Message)

// ReplyWith calls f(msg).
func (f EnvelopeFunc) ReplyWith(msg Message) {
	f(msg)
}

// NoopEnvelope discards replies.
type NoopEnvelope struct{}

// ReplyWith does nothing.
func (NoopEnvelope) ReplyWith(Message) {}

// Message type names.
const (
	TypeStartComponents         = "StartComponents"
	TypeStopComponents          = "StopComponents"
	TypeComponentStarted        = "ComponentStarted"
	TypeComponentStopped        = "ComponentStopped"
	TypeStartReader             = "StartReader"
	TypeStopReader              = "StopReader"
	TypeStartCore               = "StartCore"
	TypeStopCore                = "StopCore"
	TypeSubComponentStarted     = "SubComponentStarted"
	TypeSubComponentStopped     = "SubComponentStopped"
	TypeRegularTimeout          = "RegularTimeout"
	TypeSystemCoreReady         = "SystemCoreReady"
	TypeRoleChanged             = "RoleChanged"
	TypeRestartSubsystem        = "RestartSubsystem"
	TypeSubsystemRestarting     = "SubsystemRestarting"
	TypeInvalidSubsystemRestart = "InvalidSubsystemRestart"
	TypeSubsystemInitialized    = "SubsystemInitialized"
	TypeProjectionStopped       = "ProjectionStopped"
	TypeEnableProjection        = "EnableProjection"
	TypeSubsystemStateChanged   = "SubsystemStateChanged"
)

// StartComponents tells both logical components to begin a start cycle.
type StartComponents struct {
	CorrelationID CorrelationID
}

// StopComponents tells both logical components to begin a stop cycle.
type StopComponents struct {
	CorrelationID CorrelationID
}

// ComponentStarted reports that a logical component finished starting.
type ComponentStarted struct {
	ComponentName string
	CorrelationID CorrelationID
}

// ComponentStopped reports that a logical component finished stopping.
type ComponentStopped struct {
	ComponentName string
	CorrelationID CorrelationID
}

// StartReader starts the event reader of a worker partition.
type StartReader struct {
	CorrelationID CorrelationID
}

// StopReader stops the event reader of a worker partition.
type StopReader struct {
	StopToken StopToken
}

// StartCore starts the projection core service and its command reader on a worker partition.
type StartCore struct {
	CorrelationID CorrelationID
}

// StopCore stops the projection core service and its command reader on a worker partition.
type StopCore struct {
	StopToken StopToken
}

// SubComponentStarted acknowledges that a sub-component of a worker partition started.
type SubComponentStarted struct {
	Kind          SubComponentKind
	CorrelationID CorrelationID
}

// SubComponentStopped acknowledges that a sub-component of a worker partition stopped.
// StopToken is the token of the partition the sub-component belongs to.
type SubComponentStopped struct {
	Kind      SubComponentKind
	StopToken StopToken
}

// RegularTimeout is the periodic tick that pumps partition-local timeout schedulers.
// CorrelationID is the cycle that armed the tick.
type RegularTimeout struct {
	CorrelationID CorrelationID
}

// SystemCoreReady signals that the node core finished initialising.
type SystemCoreReady struct{}

// RoleChanged signals a new cluster role for this node.
type RoleChanged struct {
	Role NodeRole
}

// RestartSubsystem requests a full stop and start cycle of the subsystem.
type RestartSubsystem struct {
	Reply Envelope
}

// SubsystemRestarting is the reply to an accepted RestartSubsystem.
type SubsystemRestarting struct{}

// InvalidSubsystemRestart is the reply to a rejected RestartSubsystem.
type InvalidSubsystemRestart struct {
	State SubsystemState
}

// SubsystemInitialized is published once per successful full start.
type SubsystemInitialized struct {
	Name string
}

// ProjectionStopped reports that a projection reached the stopped status.
type ProjectionStopped struct {
	Name string
}

// EnableProjection asks the management component to enable a projection.
type EnableProjection struct {
	Name string
}

// SubsystemStateChanged is published on every subsystem state transition.
type SubsystemStateChanged struct {
	CorrelationID CorrelationID
	From          SubsystemState
	To            SubsystemState
	At            time.Time
}

func (StartComponents) MessageType() string         { return TypeStartComponents }
func (StopComponents) MessageType() string          { return TypeStopComponents }
func (ComponentStarted) MessageType() string        { return TypeComponentStarted }
func (ComponentStopped) MessageType() string        { return TypeComponentStopped }
func (StartReader) MessageType() string             { return TypeStartReader }
func (StopReader) MessageType() string              { return TypeStopReader }
func (StartCore) MessageType() string               { return TypeStartCore }
func (StopCore) MessageType() string                { return TypeStopCore }
func (SubComponentStarted) MessageType() string     { return TypeSubComponentStarted }
func (SubComponentStopped) MessageType() string     { return TypeSubComponentStopped }
func (RegularTimeout) MessageType() string          { return TypeRegularTimeout }
func (SystemCoreReady) MessageType() string         { return TypeSystemCoreReady }
func (RoleChanged) MessageType() string             { return TypeRoleChanged }
func (RestartSubsystem) MessageType() string        { return TypeRestartSubsystem }
func (SubsystemRestarting) MessageType() string     { return TypeSubsystemRestarting }
func (InvalidSubsystemRestart) MessageType() string { return TypeInvalidSubsystemRestart }
func (SubsystemInitialized) MessageType() string    { return TypeSubsystemInitialized }
func (ProjectionStopped) MessageType() string       { return TypeProjectionStopped }
func (EnableProjection) MessageType() string        { return TypeEnableProjection }
func (SubsystemStateChanged) MessageType() string   { return TypeSubsystemStateChanged }
