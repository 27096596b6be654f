package projections_test

import (
	"context"
	"fmt"
	"time"

	rootpkg "github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/pkg/projections"
)

// Example_leader starts the subsystem on a node that becomes leader.
func Example_leader() {
	h, err := projections.New(
		projections.WithRunMode(projections.RunModeSystem),
		projections.WithMetricsEnabled(false),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	initialized := make(chan string, 1)
	h.Subscribe(rootpkg.TypeSubsystemInitialized, bus.HandlerFunc(func(msg rootpkg.Message) {
		initialized <- msg.(rootpkg.SubsystemInitialized).Name
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.Run(ctx) }()

	h.SystemReady()
	h.SetRole(projections.NodeRoleLeader)

	select {
	case name := <-initialized:
		fmt.Println(name, "initialized")
	case <-time.After(5 * time.Second):
		fmt.Println("timed out")
	}
	// Output: Projections initialized
}
